package game

import (
	"encoding/json"
	"time"
)

// EventType classifies entries in the event log.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick
	EventTypeJoin
	EventTypeLeave
	EventTypeDeath
)

// EventVersion guards replay compatibility across schema changes.
const EventVersion uint8 = 1

// Event is one record in the append-only event log.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // unix nano
	Sequence  uint64    `json:"sequence"`  // monotonic, assigned at emit
	Tick      uint64    `json:"tick"`      // tick the event occurred in
	PlayerID  string    `json:"playerId,omitempty"`
	Payload   []byte    `json:"payload,omitempty"` // JSON-encoded payload
}

func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeJoin:
		return "join"
	case EventTypeLeave:
		return "leave"
	case EventTypeDeath:
		return "death"
	default:
		return "unknown"
	}
}

// TickPayload summarizes a committed tick.
type TickPayload struct {
	PlayerCount int `json:"playerCount"`
	AliveCount  int `json:"aliveCount"`
}

// JoinPayload records where and how a player spawned.
type JoinPayload struct {
	PlayerID  string `json:"playerId"`
	SpawnX    int    `json:"spawnX"`
	SpawnY    int    `json:"spawnY"`
	Direction string `json:"direction"`
}

// LeavePayload records a player's removal from the registry.
type LeavePayload struct {
	PlayerID string `json:"playerId"`
	Score    uint64 `json:"score"`
}

// DeathPayload records a collision death.
type DeathPayload struct {
	PlayerID string `json:"playerId"`
	Cause    string `json:"cause"` // "wall", "collision" or "trail"
	X        int    `json:"x"`     // lethal candidate cell
	Y        int    `json:"y"`
	Score    uint64 `json:"score"`
}

// NewEvent builds an event with the payload marshaled in place. A payload
// that fails to marshal is recorded as an empty payload rather than lost.
func NewEvent(eventType EventType, tick uint64, playerID string, payload any) Event {
	var raw []byte
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Tick:      tick,
		PlayerID:  playerID,
		Payload:   raw,
	}
}
