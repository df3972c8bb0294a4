package game

import (
	"sync"
	"sync/atomic"
)

// InputBuffer is the handoff point between connection read pumps and the
// engine. It keeps only the latest intent per player: clients send more
// input than the simulation consumes, so older unconsumed intents are
// overwritten rather than queued. Reversal rejection happens later, at the
// engine's apply step, where the current direction is well-defined.
type InputBuffer struct {
	mu      sync.Mutex
	pending map[string]Direction

	accepted uint64 // atomic
}

// NewInputBuffer creates an empty input buffer.
func NewInputBuffer() *InputBuffer {
	return &InputBuffer{pending: make(map[string]Direction)}
}

// Offer records dir as the player's latest intent. Safe to call from any
// goroutine at any time; never blocks.
func (b *InputBuffer) Offer(id string, dir Direction) {
	b.mu.Lock()
	b.pending[id] = dir
	b.mu.Unlock()
	atomic.AddUint64(&b.accepted, 1)
}

// Forget drops any pending intent for id.
func (b *InputBuffer) Forget(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// Drain moves all pending intents into dst (cleared first) and empties the
// buffer. Called once per tick by the engine.
func (b *InputBuffer) Drain(dst map[string]Direction) map[string]Direction {
	if dst == nil {
		dst = make(map[string]Direction)
	}
	clear(dst)

	b.mu.Lock()
	for id, dir := range b.pending {
		dst[id] = dir
	}
	clear(b.pending)
	b.mu.Unlock()

	return dst
}

// Accepted returns the total number of intents offered since startup.
func (b *InputBuffer) Accepted() uint64 {
	return atomic.LoadUint64(&b.accepted)
}
