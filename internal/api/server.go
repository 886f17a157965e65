package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"collision-engine/internal/config"
	"collision-engine/internal/engine"
)

// Server combines the HTTP router with the WebSocket stats hub.
type Server struct {
	engine      *engine.Engine
	router      *chi.Mux
	statsHub    *StatsHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates an API server with production configuration.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners. For testing HTTP
// endpoints without the WebSocket feed, use NewRouter() directly.
func NewServer(e *engine.Engine, serverCfg config.ServerConfig) *Server {
	s := &Server{
		engine:      e,
		statsHub:    NewStatsHub(e),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}

	s.router = NewRouter(RouterConfig{
		Engine:      e,
		Server:      serverCfg,
		RateLimiter: s.rateLimiter,
	})

	// WebSocket route needs the hub instance, so it can't live in the
	// pure NewRouter factory.
	s.router.Get("/ws", s.statsHub.HandleWS)

	return s
}

// Start begins serving and starts the stats broadcaster. Blocks until
// the listener fails or Shutdown is called.
func (s *Server) Start(port int) error {
	go s.statsHub.Run()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🌐 API server listening on :%d", port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains connections and stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.statsHub.Stop()
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
