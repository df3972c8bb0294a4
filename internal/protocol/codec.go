package protocol

import (
	"encoding/json"
	"fmt"

	"gridlock/internal/game"
)

// DecodeMove parses a client frame. Anything that is not a well-formed move
// message with a recognized direction is an error; callers drop such frames
// silently and keep the connection open.
func DecodeMove(b []byte) (Move, error) {
	if len(b) == 0 {
		return Move{}, fmt.Errorf("empty frame")
	}
	// A pointer distinguishes an absent direction from the zero value,
	// which is a valid direction on the wire.
	var frame struct {
		Type      string          `json:"type"`
		Direction *game.Direction `json:"direction"`
	}
	if err := json.Unmarshal(b, &frame); err != nil {
		return Move{}, err
	}
	if frame.Type != MsgMove {
		return Move{}, fmt.Errorf("unexpected message type %q", frame.Type)
	}
	if frame.Direction == nil {
		return Move{}, fmt.Errorf("missing direction")
	}
	return Move{Type: frame.Type, Direction: *frame.Direction}, nil
}

// EncodeWelcome serializes the handshake reply.
func EncodeWelcome(id string, cfg game.EngineConfig) ([]byte, error) {
	return json.Marshal(Welcome{
		Type:       MsgWelcome,
		ID:         id,
		GridWidth:  cfg.GridWidth,
		GridHeight: cfg.GridHeight,
		TickRate:   cfg.TickRate,
	})
}

// EncodeState serializes one committed snapshot for broadcast. Serialized
// once per tick by the hub, not per client.
func EncodeState(snap *game.WorldSnapshot) ([]byte, error) {
	msg := State{
		Type:    MsgState,
		Tick:    snap.Tick,
		Players: make([]PlayerState, 0, len(snap.Players)),
	}
	for _, p := range snap.Players {
		msg.Players = append(msg.Players, PlayerState{
			ID:        p.ID,
			X:         p.X,
			Y:         p.Y,
			Direction: p.Direction,
			Alive:     p.Alive,
			Score:     p.Score,
			Trail:     p.Trail,
		})
	}
	return json.Marshal(msg)
}

// EncodeMembership serializes a join or leave notification.
func EncodeMembership(msgType, id string) ([]byte, error) {
	if msgType != MsgJoin && msgType != MsgLeave {
		return nil, fmt.Errorf("invalid membership type %q", msgType)
	}
	return json.Marshal(Membership{Type: msgType, ID: id})
}
