package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubSubscribeEmitUnsubscribe(t *testing.T) {
	var h Hub
	var order []int
	unsubA := h.Subscribe(func() { order = append(order, 1) })
	h.Subscribe(func() { order = append(order, 2) })

	h.Emit()
	assert.Equal(t, []int{1, 2}, order)

	unsubA()
	unsubA()
	assert.Equal(t, 1, h.Len())

	order = nil
	h.Emit()
	assert.Equal(t, []int{2}, order)
}

func TestHubListenerMayResubscribe(t *testing.T) {
	var h Hub
	calls := 0
	h.Subscribe(func() {
		calls++
		h.Subscribe(func() {})
	})
	h.Emit()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, h.Len())
}

func TestHubKeepsOrderAcrossChurn(t *testing.T) {
	var h Hub
	var order []int
	for i := 0; i < 1000; i++ {
		h.Subscribe(func() {})()
	}
	unsubs := make([]func(), 5)
	for i := range unsubs {
		unsubs[i] = h.Subscribe(func() { order = append(order, i) })
	}
	unsubs[1]()
	unsubs[3]()
	h.Subscribe(func() { order = append(order, 5) })

	h.Emit()
	assert.Equal(t, []int{0, 2, 4, 5}, order)
	assert.Equal(t, 4, h.Len())
}
