// internal/api/server.go
package api

import (
	"context"
	"net/http"
	"time"

	"notification-queue/internal/common/logger"
	"notification-queue/internal/dispatch"
	"notification-queue/internal/lifecycle"
	"notification-queue/internal/queue"
	"notification-queue/internal/templates"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Dependencies struct {
	Planner   *dispatch.Planner
	Lifecycle *lifecycle.Service
	Queue     queue.Store
	Templates templates.Store
	Ready     map[string]ReadyCheck
	Logger    logger.Logger
}

type Server struct {
	planner   *dispatch.Planner
	lifecycle *lifecycle.Service
	queue     queue.Store
	templates templates.Store
	ready     map[string]ReadyCheck
	logger    logger.Logger
}

func NewServer(deps Dependencies) *Server {
	return &Server{
		planner:   deps.Planner,
		lifecycle: deps.Lifecycle,
		queue:     deps.Queue,
		templates: deps.Templates,
		ready:     deps.Ready,
		logger:    deps.Logger,
	}
}

// Router wires every route. Business routes are partner scoped through a
// partnerId query parameter or body field.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/ready", s.readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/read/{id}", s.readReceipt)

	r.Post("/notifications", s.createNotifications)

	r.Route("/queue-emails", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/", s.listQueue)
		r.Get("/count", s.countQueue)
		r.Get("/search", s.searchQueue)
		r.Post("/generate", s.generate)
		r.Post("/cancel", s.cancel)
		r.Post("/cleanup", s.cleanup)
		r.Get("/{id}", s.getQueue)
		r.Post("/{id}/reprocess", s.reprocess)
	})

	r.Route("/notification-emails", func(r chi.Router) {
		r.Get("/", s.listTemplates)
		r.Get("/count", s.countTemplates)
		r.Put("/", s.saveTemplate)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.ready))
	for name, check := range s.ready {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, checks)
}
