package game

import (
	"sync/atomic"
	"time"
)

// PlayerSnapshot is an immutable copy of player state at a tick boundary.
// Uses value types so a published snapshot can never observe a later tick.
type PlayerSnapshot struct {
	ID        string    `json:"id"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Direction Direction `json:"direction"`
	Alive     bool      `json:"alive"`
	Score     uint64    `json:"score"`
	Trail     []Cell    `json:"trail,omitempty"`
}

// WorldSnapshot is the complete committed world state for one tick.
// The broadcaster and the REST surface only ever read the most recently
// published snapshot.
type WorldSnapshot struct {
	Sequence  uint64    // monotonic publish sequence
	Timestamp time.Time // when the snapshot was committed
	Tick      uint64    // simulation tick this represents

	Players []PlayerSnapshot // sorted by id

	PlayerCount int
	AliveCount  int
}

// Has reports whether a player id appears in the snapshot.
func (s *WorldSnapshot) Has(id string) bool {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return true
		}
	}
	return false
}

// snapshotPool triple-buffers world snapshots so the engine (sole producer)
// and any number of readers never contend on a lock. The engine writes into
// the next slot and publishes it atomically; readers always get the latest
// complete snapshot.
type snapshotPool struct {
	snapshots [3]WorldSnapshot
	writeIdx  uint32 // atomic, producer only
	readIdx   uint32 // atomic
	sequence  uint64 // atomic
}

func newSnapshotPool(maxPlayers int) *snapshotPool {
	p := &snapshotPool{}
	for i := range p.snapshots {
		p.snapshots[i].Players = make([]PlayerSnapshot, 0, maxPlayers)
	}
	return p
}

// acquireWrite returns the next write slot with its slice reset but its
// capacity kept. Engine goroutine only.
func (p *snapshotPool) acquireWrite() *WorldSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Players = snap.Players[:0]
	snap.PlayerCount = 0
	snap.AliveCount = 0
	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// publishWrite makes the most recently written slot visible to readers.
func (p *snapshotPool) publishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// acquireRead returns the latest published snapshot.
func (p *snapshotPool) acquireRead() *WorldSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}
