// Package api exposes the collision engine over HTTP: detection
// endpoints, statistics export, a WebSocket stats feed, and the
// observability (metrics/pprof) debug server.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"collision-engine/internal/config"
	"collision-engine/internal/engine"
)

// RouterConfig contains all dependencies needed to construct the HTTP
// router. Designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: eng,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the collision engine (required).
	Engine *engine.Engine

	// Server holds body-size limits and related settings. Zero value uses
	// config.DefaultServer().
	Server config.ServerConfig

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used when RateLimiter is nil. If both are
	// nil, DefaultRateLimitConfig applies.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// Nil uses localhost-only defaults.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for
	// benchmarks and tests).
	DisableLogging bool
}

// routerHandlers holds the handler dependencies for the route setup.
type routerHandlers struct {
	engine *engine.Engine
	server config.ServerConfig
	rl     *IPRateLimiter
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - no goroutines are started and no
// network listeners are opened (the rate limiter's cleanup loop belongs
// to the limiter passed in or created here). This makes it safe to use
// in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS, to reject early and save CPU.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	server := cfg.Server
	if server.MaxBodyBytes == 0 {
		server = config.DefaultServer()
	}

	h := &routerHandlers{
		engine: cfg.Engine,
		server: server,
		rl:     rateLimiter,
	}

	r.Route("/api", func(r chi.Router) {
		// Detection
		r.Post("/detect", h.handleDetect)
		r.Post("/components", h.handleComponents)

		// Statistics export
		r.Get("/stats", h.handleGetStats)
		r.Get("/history", h.handleGetHistory)

		// Debug visualization
		r.Post("/debug/scene.png", h.handleDebugScene)

		r.Get("/health", h.handleHealth)
	})

	return r
}
