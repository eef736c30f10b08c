package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Noopy420/hedera-intel-agent/internal/api/middleware"
	"github.com/Noopy420/hedera-intel-agent/internal/registry"
	"github.com/Noopy420/hedera-intel-agent/internal/store"
)

// Deps wires the handlers' collaborators. History and Audit may be nil when
// unconfigured; the health endpoint reports them as absent.
type Deps struct {
	Registry   *registry.Registry
	History    *store.RedisStore
	Audit      store.DataStore
	OperatorID string
	Network    string
	StartedAt  time.Time
}

// NewRouter creates and configures the ops HTTP router.
func NewRouter(logger zerolog.Logger, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	// CORS - read-only ops surface, dashboards call from anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := NewHandler(deps)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/connections", h.Connections)
	r.Get("/connections/history", h.ConnectionHistory)
	r.Get("/messages/{topic}", h.TopicMessages)

	return r
}
