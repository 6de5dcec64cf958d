// Package notify implements the payload-free change notification used by the
// stores: listeners are told "something changed" and re-read the snapshot.
package notify

import (
	"cmp"
	"slices"
	"sync"
)

type listener struct {
	id int
	fn func()
}

// Hub is a set of listeners. The zero value is ready to use.
type Hub struct {
	mu sync.Mutex
	// listeners is ordered by id, which is the subscription order.
	listeners []listener
	next      int
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is safe.
func (h *Hub) Subscribe(fn func()) (unsubscribe func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners = append(h.listeners, listener{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			i, ok := slices.BinarySearchFunc(h.listeners, id, func(l listener, id int) int {
				return cmp.Compare(l.id, id)
			})
			if ok {
				h.listeners = slices.Delete(h.listeners, i, i+1)
			}
		})
	}
}

// Emit calls every listener in subscription order. Listeners run on the
// caller's goroutine and may call back into the store that emitted.
func (h *Hub) Emit() {
	h.mu.Lock()
	fns := make([]func(), len(h.listeners))
	for i, l := range h.listeners {
		fns[i] = l.fn
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of registered listeners.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
