package api

import (
	"context"
	"net/http"

	"gridlock/internal/config"
	"gridlock/internal/game"
	"gridlock/internal/logging"

	"github.com/go-chi/chi/v5"
)

// Server combines the REST router with the websocket hub.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
	httpSrv     *http.Server
}

// NewServer builds the server. No goroutines start and no listeners open
// until Start; tests can construct it and use Router or Hub directly.
func NewServer(engine *game.Engine, cfg config.ServerConfig) *Server {
	s := &Server{
		engine:      engine,
		hub:         NewHub(engine, cfg.MaxConns, cfg.ConnsPerIP),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		RateLimiter: s.rateLimiter,
	})
	s.router.Get("/ws", s.hub.HandleWS)

	return s
}

// Hub returns the websocket hub, for wiring the engine's commit hook.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router returns the HTTP handler, for httptest in integration tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the hub and serves HTTP on addr, blocking until shutdown.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}
	logging.Log.Infof("api server listening on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Stop shuts the listener, the hub, and the rate limiter down.
func (s *Server) Stop(ctx context.Context) {
	if s.httpSrv != nil {
		_ = s.httpSrv.Shutdown(ctx)
	}
	s.hub.Stop()
	s.rateLimiter.Stop()
}
