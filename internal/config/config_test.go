package config

import "testing"

func TestDefaults(t *testing.T) {
	game := DefaultGame()
	if game.GridWidth != 64 || game.GridHeight != 48 {
		t.Errorf("unexpected default grid: %dx%d", game.GridWidth, game.GridHeight)
	}
	if game.TickRate != 10 {
		t.Errorf("unexpected default tick rate: %d", game.TickRate)
	}
	if game.MaxPlayers != 64 {
		t.Errorf("unexpected default max players: %d", game.MaxPlayers)
	}

	server := DefaultServer()
	if server.Port != 3000 {
		t.Errorf("unexpected default port: %d", server.Port)
	}
	if server.EventLog != "" {
		t.Errorf("event log should be disabled by default, got %q", server.EventLog)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GRID_WIDTH", "100")
	t.Setenv("GRID_HEIGHT", "80")
	t.Setenv("TICK_RATE", "20")
	t.Setenv("MAX_PLAYERS", "16")
	t.Setenv("MAX_TRAIL_LEN", "0")
	t.Setenv("RNG_SEED", "12345")
	t.Setenv("PORT", "8080")
	t.Setenv("EVENT_LOG_PATH", "/tmp/events.jsonl")

	cfg := Load()

	if cfg.Game.GridWidth != 100 || cfg.Game.GridHeight != 80 {
		t.Errorf("grid override not applied: %dx%d", cfg.Game.GridWidth, cfg.Game.GridHeight)
	}
	if cfg.Game.TickRate != 20 {
		t.Errorf("tick rate override not applied: %d", cfg.Game.TickRate)
	}
	if cfg.Game.MaxPlayers != 16 {
		t.Errorf("max players override not applied: %d", cfg.Game.MaxPlayers)
	}
	if cfg.Game.MaxTrailLen != 0 {
		t.Errorf("zero trail length should be honored, got %d", cfg.Game.MaxTrailLen)
	}
	if cfg.Game.RNGSeed != 12345 {
		t.Errorf("seed override not applied: %d", cfg.Game.RNGSeed)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port override not applied: %d", cfg.Server.Port)
	}
	if cfg.Server.EventLog != "/tmp/events.jsonl" {
		t.Errorf("event log override not applied: %q", cfg.Server.EventLog)
	}
}

func TestBadEnvValuesFallBack(t *testing.T) {
	t.Setenv("GRID_WIDTH", "not-a-number")
	t.Setenv("TICK_RATE", "-5")
	t.Setenv("PORT", "")

	cfg := Load()

	if cfg.Game.GridWidth != 64 {
		t.Errorf("bad grid width should fall back to default, got %d", cfg.Game.GridWidth)
	}
	if cfg.Game.TickRate != 10 {
		t.Errorf("negative tick rate should fall back to default, got %d", cfg.Game.TickRate)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("empty port should fall back to default, got %d", cfg.Server.Port)
	}
}
