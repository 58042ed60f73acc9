package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/irgordon/ak/api/internal/api/handlers"
	ak_middleware "github.com/irgordon/ak/api/internal/api/middleware"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 1_048_576

// RouterConfig defines the dependencies required to build the API routing tree.
type RouterConfig struct {
	AllowedOrigins []string
	ProfileHandler *handlers.ProfileHandler
	KeyHandler     *handlers.KeyHandler
	HealthHandler  *handlers.HealthHandler
	EventsHandler  *handlers.EventsHandler
	RateLimiter    *ak_middleware.RateLimiter
	Logger         *slog.Logger
}

// NewRouter constructs the Chi multiplexer, attaches global middleware, and wires all endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// =========================================================================
	// 1. Global Middleware Pipeline
	// =========================================================================

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(ak_middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	// 🛡️ Limit all request bodies to 1 Megabyte (OOM protection)
	r.Use(ak_middleware.MaxBytes(MaxBodyBytes))

	// 🛡️ In-memory token bucket rate limiting
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Handler)
	}

	// The web interface is served from another origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	// =========================================================================
	// 2. API Routing Tree
	// =========================================================================

	r.Route("/api", func(r chi.Router) {
		// Long-lived stream, kept outside the request timeout
		if cfg.EventsHandler != nil {
			r.Get("/events", cfg.EventsHandler.Stream)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/health", cfg.HealthHandler.Check)
			r.Get("/services", handlers.ListServices)

			r.Route("/profiles", func(r chi.Router) {
				r.Get("/", cfg.ProfileHandler.List)
				r.Post("/", cfg.ProfileHandler.Create)

				r.Route("/{profile}", func(r chi.Router) {
					r.Delete("/", cfg.ProfileHandler.Delete)
					r.Get("/export", cfg.ProfileHandler.Export)
					r.Post("/import", cfg.ProfileHandler.Import)
					r.Post("/reconcile", cfg.ProfileHandler.Reconcile)

					r.Get("/keys", cfg.KeyHandler.List)
					r.Post("/keys", cfg.KeyHandler.Add)
					r.Put("/keys/{key}", cfg.KeyHandler.Update)
					r.Delete("/keys/{key}", cfg.KeyHandler.Delete)
				})
			})
		})
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	return r
}
