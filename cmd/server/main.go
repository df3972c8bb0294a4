package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gridlock/internal/api"
	"gridlock/internal/config"
	"gridlock/internal/game"
	"gridlock/internal/logging"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	cfg := config.Load()

	if err := logging.Init(cfg.Server.LogPath); err != nil {
		panic(err)
	}
	defer logging.Sync()

	logging.Log.Infof("gridlock starting: grid=%dx%d tick=%d TPS maxPlayers=%d",
		cfg.Game.GridWidth, cfg.Game.GridHeight, cfg.Game.TickRate, cfg.Game.MaxPlayers)

	engine := game.NewEngine(game.EngineConfig{
		GridWidth:   cfg.Game.GridWidth,
		GridHeight:  cfg.Game.GridHeight,
		TickRate:    cfg.Game.TickRate,
		MaxPlayers:  cfg.Game.MaxPlayers,
		MaxTrailLen: cfg.Game.MaxTrailLen,
		Seed:        cfg.Game.RNGSeed,
	})

	if cfg.Server.EventLog != "" {
		if err := engine.StartEventLog(cfg.Server.EventLog); err != nil {
			logging.Log.Warnf("event log disabled: %v", err)
		} else {
			logging.Log.Infof("event log: %s", cfg.Server.EventLog)
		}
	}

	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			logging.Log.Warnf("debug server disabled: %v", err)
		}
	}

	server := api.NewServer(engine, cfg.Server)
	engine.SetOnCommit(server.Hub().Publish)
	engine.SetOnTick(api.RecordTick)

	engine.Start()

	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logging.Log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Stop(ctx)
	engine.Stop()
	engine.StopEventLog()
}
