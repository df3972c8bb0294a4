// Package config provides centralized configuration management.
// This is the single source of truth for all simulation and server settings.
package config

import (
	"os"
	"strconv"
)

// GameConfig holds the simulation settings shared by the tick engine and
// the websocket handshake (clients learn grid size and cadence on welcome).
type GameConfig struct {
	GridWidth   int   // playfield width in cells
	GridHeight  int   // playfield height in cells
	TickRate    int   // simulation ticks per second
	MaxPlayers  int   // hard cap on registered players
	MaxTrailLen int   // trail cells kept per player; 0 disables trails
	RNGSeed     int64 // spawn RNG seed; 0 derives from wall clock
}

// DefaultGame returns the default simulation configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		GridWidth:   64,
		GridHeight:  48,
		TickRate:    10,
		MaxPlayers:  64,
		MaxTrailLen: 32,
	}
}

// GameFromEnv returns simulation configuration with environment overrides.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if w := getEnvInt("GRID_WIDTH", 0); w > 0 {
		cfg.GridWidth = w
	}
	if h := getEnvInt("GRID_HEIGHT", 0); h > 0 {
		cfg.GridHeight = h
	}
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if mp := getEnvInt("MAX_PLAYERS", 0); mp > 0 {
		cfg.MaxPlayers = mp
	}
	if tl := getEnvInt("MAX_TRAIL_LEN", -1); tl >= 0 {
		cfg.MaxTrailLen = tl
	}
	if seed := getEnvInt64("RNG_SEED", 0); seed != 0 {
		cfg.RNGSeed = seed
	}

	return cfg
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int
	LogPath    string // rolling log file path
	EventLog   string // JSONL event log path; empty disables it
	MaxConns   int    // global websocket connection cap
	ConnsPerIP int    // per-IP websocket connection cap
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:       3000,
		LogPath:    "gridlock.log",
		MaxConns:   500,
		ConnsPerIP: 10,
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if lp := os.Getenv("LOG_PATH"); lp != "" {
		cfg.LogPath = lp
	}
	cfg.EventLog = os.Getenv("EVENT_LOG_PATH")
	if mc := getEnvInt("MAX_WS_CONNS", 0); mc > 0 {
		cfg.MaxConns = mc
	}
	if pc := getEnvInt("WS_CONNS_PER_IP", 0); pc > 0 {
		cfg.ConnsPerIP = pc
	}

	return cfg
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game   GameConfig
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:   GameFromEnv(),
		Server: ServerFromEnv(),
	}
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}
