package game

import "sort"

// Registry is the single shared source of truth for registered players.
// All mutators are package-private and called only from the engine
// goroutine; other components observe players via snapshots and express
// intent via the engine's command and input channels. This single-writer
// rule keeps the simulation race-free without per-player locking.
type Registry struct {
	players map[string]*Player
}

func newRegistry() *Registry {
	return &Registry{players: make(map[string]*Player)}
}

func (r *Registry) add(p *Player) {
	r.players[p.ID] = p
}

func (r *Registry) remove(id string) {
	delete(r.players, id)
}

func (r *Registry) get(id string) *Player {
	return r.players[id]
}

func (r *Registry) has(id string) bool {
	_, ok := r.players[id]
	return ok
}

func (r *Registry) count() int {
	return len(r.players)
}

// sortedIDs returns all player ids in lexicographic order. Every per-tick
// iteration goes through this so that runs with identical inputs visit
// players in identical order.
func (r *Registry) sortedIDs() []string {
	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
