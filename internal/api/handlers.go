package api

import (
	"encoding/json"
	"net/http"

	"gridlock/internal/protocol"
)

// handleGetState returns the latest committed snapshot in the same shape
// the websocket broadcasts, for polling clients and debugging.
func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()

	players := make([]protocol.PlayerState, 0, len(snap.Players))
	for _, p := range snap.Players {
		players = append(players, protocol.PlayerState{
			ID:        p.ID,
			X:         p.X,
			Y:         p.Y,
			Direction: p.Direction,
			Alive:     p.Alive,
			Score:     p.Score,
			Trail:     p.Trail,
		})
	}

	writeJSON(w, map[string]any{
		"tick":        snap.Tick,
		"players":     players,
		"playerCount": snap.PlayerCount,
		"aliveCount":  snap.AliveCount,
	})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Stats())
}

// writeJSON marshals to a buffer before touching the ResponseWriter: a
// stalled client must never hold an encode open against shared state.
func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(append(body, '\n'))
}
