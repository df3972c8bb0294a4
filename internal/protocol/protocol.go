// Package protocol defines the websocket wire messages. All frames are
// JSON text with a discriminating "type" field.
package protocol

import "gridlock/internal/game"

const (
	MsgMove    = "move"
	MsgWelcome = "welcome"
	MsgState   = "state"
	MsgJoin    = "join"
	MsgLeave   = "leave"
)

// Move is the only client-to-server message: directional intent.
type Move struct {
	Type      string         `json:"type"`
	Direction game.Direction `json:"direction"`
}

// Welcome is sent once after a successful handshake.
type Welcome struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	GridWidth  int    `json:"width"`
	GridHeight int    `json:"height"`
	TickRate   int    `json:"tickRate"`
}

// PlayerState is one player's entry in a state broadcast.
type PlayerState struct {
	ID        string         `json:"id"`
	X         int            `json:"x"`
	Y         int            `json:"y"`
	Direction game.Direction `json:"direction"`
	Alive     bool           `json:"alive"`
	Score     uint64         `json:"score"`
	Trail     []game.Cell    `json:"trail,omitempty"`
}

// State carries one committed world snapshot.
type State struct {
	Type    string        `json:"type"`
	Tick    uint64        `json:"tick"`
	Players []PlayerState `json:"players"`
}

// Membership announces a join or leave. Delivered piggybacked on the next
// snapshot each client receives, never out-of-band from the tick engine.
type Membership struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}
