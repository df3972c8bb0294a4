package game

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gridlock/internal/logging"
)

// Join errors returned to the connection manager.
var (
	ErrIDInUse    = errors.New("player id already active")
	ErrServerFull = errors.New("player limit reached")
	ErrStopped    = errors.New("engine stopped")
)

// EngineConfig holds the simulation parameters.
type EngineConfig struct {
	GridWidth   int
	GridHeight  int
	TickRate    int   // ticks per second
	MaxPlayers  int
	MaxTrailLen int   // 0 disables trails
	Seed        int64 // 0 derives a seed from the wall clock
}

// Engine runs the authoritative simulation. A single goroutine owns the
// registry and all player state: joins and leaves arrive over the command
// inbox, directional intent through the input buffer, and everything else
// observes the world through immutable published snapshots. The tick
// cadence is fixed; nothing a client does can stall it.
type Engine struct {
	cfg      EngineConfig
	registry *Registry
	inputs   *InputBuffer
	eventLog *EventLog

	inbox    chan any
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	done     chan struct{}

	// Engine goroutine only.
	tick     uint64
	occupied map[Cell]string     // trail cell -> owner id
	removals map[string]struct{} // disconnects queued for the next tick
	intents  map[string]Direction
	rng      *rand.Rand

	pool *snapshotPool

	onCommit func(*WorldSnapshot)
	onTick   func(time.Duration)

	reversalsRejected atomic.Uint64
	deaths            atomic.Uint64
}

type joinRequest struct {
	id    string
	reply chan joinReply
}

type joinReply struct {
	player PlayerSnapshot
	err    error
}

type leaveRequest struct {
	id string
}

// NewEngine creates an engine. Background work starts only on Start.
func NewEngine(cfg EngineConfig) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		cfg:      cfg,
		registry: newRegistry(),
		inputs:   NewInputBuffer(),
		eventLog: NewEventLog(),
		inbox:    make(chan any, 256),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		occupied: make(map[Cell]string),
		removals: make(map[string]struct{}),
		intents:  make(map[string]Direction),
		rng:      rand.New(rand.NewSource(seed)),
		pool:     newSnapshotPool(cfg.MaxPlayers),
	}
}

// Config returns the simulation parameters (for the welcome handshake).
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// SetOnCommit registers the broadcaster hook, called on the engine
// goroutine after every committed tick. It must never block; the hub
// satisfies this with a capacity-1 notify channel. Set before Start.
func (e *Engine) SetOnCommit(fn func(*WorldSnapshot)) {
	e.onCommit = fn
}

// SetOnTick registers a tick-duration hook for metrics. Set before Start.
func (e *Engine) SetOnTick(fn func(time.Duration)) {
	e.onTick = fn
}

// Start launches the tick loop.
func (e *Engine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	go e.run()
	logging.Log.Infof("engine started: %dx%d grid, %d TPS, max %d players",
		e.cfg.GridWidth, e.cfg.GridHeight, e.cfg.TickRate, e.cfg.MaxPlayers)
}

// Stop ends the tick loop. The in-flight tick, if any, completes; no tick
// is left partially applied.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
		if e.running.Load() {
			<-e.done
		}
		logging.Log.Infof("engine stopped at tick %d", e.tick)
	})
}

// Join registers a new player, assigning a randomized unoccupied spawn and
// a default direction. It fails with ErrIDInUse if the id is already
// active, ErrServerFull at the player cap.
func (e *Engine) Join(ctx context.Context, id string) (PlayerSnapshot, error) {
	reply := make(chan joinReply, 1)

	select {
	case e.inbox <- joinRequest{id: id, reply: reply}:
	case <-e.stopChan:
		return PlayerSnapshot{}, ErrStopped
	case <-ctx.Done():
		return PlayerSnapshot{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.player, r.err
	case <-e.stopChan:
		return PlayerSnapshot{}, ErrStopped
	case <-ctx.Done():
		return PlayerSnapshot{}, ctx.Err()
	}
}

// Leave queues a player for removal at the next tick boundary. The registry
// is never mutated while the engine is iterating it.
func (e *Engine) Leave(id string) {
	select {
	case e.inbox <- leaveRequest{id: id}:
	case <-e.stopChan:
	}
}

// OfferInput records a player's latest directional intent. Applied at the
// next tick boundary; exact reversals are rejected there.
func (e *Engine) OfferInput(id string, dir Direction) {
	e.inputs.Offer(id, dir)
}

// Snapshot returns the most recently committed world state.
func (e *Engine) Snapshot() *WorldSnapshot {
	return e.pool.acquireRead()
}

// StartEventLog begins recording simulation events to filePath.
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog flushes and closes the event log.
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// Stats returns counters for the REST surface.
func (e *Engine) Stats() map[string]any {
	snap := e.Snapshot()
	return map[string]any{
		"tick":              snap.Tick,
		"players":           snap.PlayerCount,
		"alive":             snap.AliveCount,
		"inputsAccepted":    e.inputs.Accepted(),
		"reversalsRejected": e.reversalsRejected.Load(),
		"deaths":            e.deaths.Load(),
		"eventLog":          e.eventLog.Stats(),
	}
}

func (e *Engine) run() {
	defer close(e.done)

	ticker := time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case cmd := <-e.inbox:
			e.handleCommand(cmd)
		case <-ticker.C:
			start := time.Now()
			e.step()
			if e.onTick != nil {
				e.onTick(time.Since(start))
			}
		}
	}
}

func (e *Engine) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case joinRequest:
		player, err := e.handleJoin(c.id)
		c.reply <- joinReply{player: player, err: err}
	case leaveRequest:
		e.removals[c.id] = struct{}{}
	}
}

func (e *Engine) handleJoin(id string) (PlayerSnapshot, error) {
	if e.registry.has(id) {
		return PlayerSnapshot{}, ErrIDInUse
	}
	if e.registry.count() >= e.cfg.MaxPlayers {
		return PlayerSnapshot{}, ErrServerFull
	}

	spawn, ok := e.findSpawn()
	if !ok {
		return PlayerSnapshot{}, ErrServerFull
	}

	p := newPlayer(id, spawn, e.spawnDirection(spawn))
	e.registry.add(p)

	e.eventLog.EmitSimple(EventTypeJoin, e.tick, id, JoinPayload{
		PlayerID:  id,
		SpawnX:    spawn.X,
		SpawnY:    spawn.Y,
		Direction: p.Dir.String(),
	})
	logging.Log.Infof("player joined: id=%s spawn=(%d,%d) dir=%s", id, spawn.X, spawn.Y, p.Dir)

	return e.snapshotPlayer(p), nil
}

// findSpawn picks a random unoccupied cell, falling back to a row-major
// scan when random probing keeps hitting occupied cells.
func (e *Engine) findSpawn() (Cell, bool) {
	for i := 0; i < 64; i++ {
		c := Cell{X: e.rng.Intn(e.cfg.GridWidth), Y: e.rng.Intn(e.cfg.GridHeight)}
		if e.cellFree(c) {
			return c, true
		}
	}
	for y := 0; y < e.cfg.GridHeight; y++ {
		for x := 0; x < e.cfg.GridWidth; x++ {
			if c := (Cell{X: x, Y: y}); e.cellFree(c) {
				return c, true
			}
		}
	}
	return Cell{}, false
}

func (e *Engine) cellFree(c Cell) bool {
	if _, taken := e.occupied[c]; taken {
		return false
	}
	for _, id := range e.registry.sortedIDs() {
		if e.registry.get(id).Head() == c {
			return false
		}
	}
	return true
}

// spawnDirection faces the new player away from the nearest wall.
func (e *Engine) spawnDirection(c Cell) Direction {
	dir := DirRight
	closest := c.X // distance to the left wall
	if d := e.cfg.GridWidth - 1 - c.X; d < closest {
		closest = d
		dir = DirLeft
	}
	if c.Y < closest {
		closest = c.Y
		dir = DirDown
	}
	if d := e.cfg.GridHeight - 1 - c.Y; d < closest {
		dir = DirUp
	}
	return dir
}

type mover struct {
	p     *Player
	next  Cell
	dead  bool
	cause string
}

// step advances the world one tick. Ordering is fixed: drain input, resolve
// directions, compute every candidate position from the pre-move snapshot,
// detect collisions against candidates and pre-tick trail cells, commit,
// apply queued removals, score survivors, publish.
func (e *Engine) step() {
	e.tick++
	e.intents = e.inputs.Drain(e.intents)

	ids := e.registry.sortedIDs()

	// Resolve intended directions and candidate positions. No candidate
	// depends on another player's already-updated position, which makes
	// head-on collisions symmetric and order-independent.
	movers := make([]mover, 0, len(ids))
	candidates := make(map[Cell]int, len(ids))
	for _, id := range ids {
		p := e.registry.get(id)
		if !p.Alive {
			continue
		}
		if intent, ok := e.intents[id]; ok {
			if intent == p.Dir.Opposite() {
				e.reversalsRejected.Add(1)
			} else {
				p.Dir = intent
			}
		}
		dx, dy := p.Dir.Delta()
		next := Cell{X: p.X + dx, Y: p.Y + dy}
		movers = append(movers, mover{p: p, next: next})
		candidates[next]++
	}

	// Collision detection. All verdicts are reached before any move
	// commits, so trail growth inside this tick cannot shadow a check.
	for i := range movers {
		m := &movers[i]
		switch {
		case !e.inBounds(m.next):
			m.dead, m.cause = true, "wall"
		case candidates[m.next] > 1:
			m.dead, m.cause = true, "collision"
		default:
			if _, taken := e.occupied[m.next]; taken {
				m.dead, m.cause = true, "trail"
			}
		}
	}

	// Commit.
	for i := range movers {
		m := &movers[i]
		if m.dead {
			e.kill(m.p, m.cause, m.next)
			continue
		}
		if e.cfg.MaxTrailLen > 0 {
			e.growTrail(m.p)
		}
		m.p.X, m.p.Y = m.next.X, m.next.Y
	}

	e.applyRemovals()

	for _, id := range e.registry.sortedIDs() {
		if p := e.registry.get(id); p.Alive {
			p.Score++
		}
	}

	snap := e.publishSnapshot()
	if e.onCommit != nil {
		e.onCommit(snap)
	}
	e.eventLog.EmitSimple(EventTypeTick, e.tick, "", TickPayload{
		PlayerCount: snap.PlayerCount,
		AliveCount:  snap.AliveCount,
	})
}

func (e *Engine) inBounds(c Cell) bool {
	return c.X >= 0 && c.X < e.cfg.GridWidth && c.Y >= 0 && c.Y < e.cfg.GridHeight
}

// growTrail appends the cell the player is about to vacate and trims the
// oldest cell past the cap.
func (e *Engine) growTrail(p *Player) {
	head := p.Head()
	p.Trail = append(p.Trail, head)
	e.occupied[head] = p.ID
	if len(p.Trail) > e.cfg.MaxTrailLen {
		// After a swap-through a cell can sit in two trails with a single
		// owner; only the owner's trim may free it.
		if e.occupied[p.Trail[0]] == p.ID {
			delete(e.occupied, p.Trail[0])
		}
		copy(p.Trail, p.Trail[1:])
		p.Trail = p.Trail[:len(p.Trail)-1]
	}
}

// kill marks the player dead in place: the lethal candidate position is
// never committed, the trail is released.
func (e *Engine) kill(p *Player, cause string, at Cell) {
	p.Alive = false
	e.releaseTrail(p)
	e.deaths.Add(1)

	e.eventLog.EmitSimple(EventTypeDeath, e.tick, p.ID, DeathPayload{
		PlayerID: p.ID,
		Cause:    cause,
		X:        at.X,
		Y:        at.Y,
		Score:    p.Score,
	})
	logging.Log.Infof("player died: id=%s cause=%s at=(%d,%d) score=%d", p.ID, cause, at.X, at.Y, p.Score)
}

func (e *Engine) releaseTrail(p *Player) {
	for _, c := range p.Trail {
		if e.occupied[c] == p.ID {
			delete(e.occupied, c)
		}
	}
	p.Trail = nil
}

// applyRemovals processes queued disconnects. Removed always overrides
// dead or alive, whatever happened to the player earlier this tick.
func (e *Engine) applyRemovals() {
	if len(e.removals) == 0 {
		return
	}

	ids := make([]string, 0, len(e.removals))
	for id := range e.removals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := e.registry.get(id)
		if p == nil {
			continue
		}
		e.releaseTrail(p)
		e.registry.remove(id)
		e.inputs.Forget(id)

		e.eventLog.EmitSimple(EventTypeLeave, e.tick, id, LeavePayload{
			PlayerID: id,
			Score:    p.Score,
		})
		logging.Log.Infof("player removed: id=%s score=%d", id, p.Score)
	}
	clear(e.removals)
}

func (e *Engine) snapshotPlayer(p *Player) PlayerSnapshot {
	ps := PlayerSnapshot{
		ID:        p.ID,
		X:         p.X,
		Y:         p.Y,
		Direction: p.Dir,
		Alive:     p.Alive,
		Score:     p.Score,
	}
	if len(p.Trail) > 0 {
		ps.Trail = append([]Cell(nil), p.Trail...)
	}
	return ps
}

func (e *Engine) publishSnapshot() *WorldSnapshot {
	snap := e.pool.acquireWrite()
	snap.Tick = e.tick

	for _, id := range e.registry.sortedIDs() {
		p := e.registry.get(id)
		snap.Players = append(snap.Players, e.snapshotPlayer(p))
		if p.Alive {
			snap.AliveCount++
		}
	}
	snap.PlayerCount = len(snap.Players)

	e.pool.publishWrite()
	return snap
}
