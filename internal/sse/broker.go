// Package sse implements a Server-Sent Events broker that tells HTTP clients
// when the tracked collection or the settings changed.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Change topics.
const (
	TopicTechnologies = "technologies"
	TopicSettings     = "settings"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + per-topic throttle state). Public methods communicate with this loop
// through channels, so no mutexes are required.
type Broker struct {
	instance  string
	changeMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan string
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. instance is announced to every client in a
// hello event; changes to one topic are sent at most once per throttle
// interval, with a trailing event for anything that arrived in between.
func NewBroker(instance string, throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 250 * time.Millisecond
	}

	b := &Broker{
		instance:      instance,
		changeMin:     throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan string, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) []byte {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	lastSent := make(map[string]time.Time)
	pending := make(map[string]bool)
	var flushTimer *time.Timer
	var flushCh <-chan time.Time
	var flushAt time.Time

	send := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// Client buffer full; skip to avoid blocking broker loop.
		}
	}

	broadcast := func(event Event) {
		raw := encode(event)
		if raw == nil {
			return
		}
		for ch := range clients {
			send(ch, raw)
		}
	}

	emitChange := func(topic string, now time.Time) {
		lastSent[topic] = now
		delete(pending, topic)
		broadcast(Event{Type: topic + ".changed", Data: map[string]string{}})
	}

	// armFlush schedules the flush for at unless an earlier one is armed.
	armFlush := func(at time.Time) {
		if !flushAt.IsZero() && !at.Before(flushAt) {
			return
		}
		flushAt = at
		d := time.Until(at)
		if flushTimer == nil {
			flushTimer = time.NewTimer(d)
			flushCh = flushTimer.C
			return
		}
		flushTimer.Reset(d)
	}

	for {
		select {
		case <-b.stopCh:
			if flushTimer != nil {
				flushTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			if raw := encode(Event{Type: "hello", Data: map[string]string{"instance": b.instance}}); raw != nil {
				send(ch, raw)
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case topic := <-b.changeCh:
			now := time.Now()
			if due := lastSent[topic].Add(b.changeMin); due.After(now) {
				if !pending[topic] {
					pending[topic] = true
					armFlush(due)
				}
				continue
			}
			emitChange(topic, now)

		case <-flushCh:
			now := time.Now()
			flushAt = time.Time{}
			var next time.Time
			for topic := range pending {
				due := lastSent[topic].Add(b.changeMin)
				if !due.After(now) {
					emitChange(topic, now)
				} else if next.IsZero() || due.Before(next) {
					next = due
				}
			}
			if !next.IsZero() {
				armFlush(next)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. The first message on
// the channel is the hello event.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishChange announces that topic changed. Clients receive a
// "<topic>.changed" event with empty data and re-fetch.
func (b *Broker) PublishChange(topic string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- topic:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
