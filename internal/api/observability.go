package api

import (
	"net/http"
	"net/http/pprof"
	"time"

	"gridlock/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality: no per-player or per-connection labels.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_player_count",
		Help: "Currently registered players",
	})

	aliveCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_alive_player_count",
		Help: "Currently alive players",
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	snapshotsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_snapshots_dropped_total",
		Help: "Snapshots replaced in a slow client's mailbox before delivery",
	})

	malformedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "client_messages_dropped_total",
		Help: "Client frames dropped as malformed or unrecognized",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections refused before registration",
	}, []string{"reason"}) // bounded: "rate_limit", "handshake", "dup_id", "full"
)

// ObservabilityConfig configures the localhost-only debug server.
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string
}

// DefaultObservabilityConfig returns safe defaults. The debug server binds
// to localhost only; pprof must never be reachable externally.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// StartDebugServer serves pprof and prometheus metrics on a side listener.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		logging.Log.Info("debug server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go func() {
		logging.Log.Infof("debug server on %s (pprof, metrics)", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			logging.Log.Warnf("debug server: %v", err)
		}
	}()

	return nil
}

// RecordTick records one tick's duration.
func RecordTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// UpdatePlayerCounts updates the registry gauges.
func UpdatePlayerCounts(total, alive int) {
	playerCount.Set(float64(total))
	aliveCount.Set(float64(alive))
}

// UpdateWSConnections updates the connection gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// RecordSnapshotDropped counts a snapshot superseded before delivery.
func RecordSnapshotDropped() {
	snapshotsDropped.Inc()
}

// RecordMalformedMessage counts a dropped client frame.
func RecordMalformedMessage() {
	malformedMessages.Inc()
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "handshake", "dup_id", "full".
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}
