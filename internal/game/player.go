package game

// Cell is a grid coordinate. (0,0) is the top-left corner.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Player is an agent's authoritative server-side state. Once registered it
// is owned exclusively by the engine goroutine; everything outside the
// engine sees players only through immutable snapshots.
type Player struct {
	ID    string
	X, Y  int
	Dir   Direction
	Alive bool
	Score uint64 // ticks survived while alive

	// Trail holds the cells this player vacated, oldest first, capped at
	// the engine's MaxTrailLen. Released when the player dies.
	Trail []Cell
}

// Head returns the player's current cell.
func (p *Player) Head() Cell {
	return Cell{X: p.X, Y: p.Y}
}

func newPlayer(id string, spawn Cell, dir Direction) *Player {
	return &Player{
		ID:    id,
		X:     spawn.X,
		Y:     spawn.Y,
		Dir:   dir,
		Alive: true,
	}
}
