package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/siaptugas/siaptugas/internal/activities"
	"github.com/siaptugas/siaptugas/internal/auth"
	"github.com/siaptugas/siaptugas/internal/observability"
	"github.com/siaptugas/siaptugas/internal/performance"
	"github.com/siaptugas/siaptugas/internal/profiles"
	"github.com/siaptugas/siaptugas/internal/shared"
	"github.com/siaptugas/siaptugas/internal/tasks"
	"github.com/siaptugas/siaptugas/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	ProfilesHandler    *profiles.Handler
	TasksHandler       *tasks.Handler
	PerformanceHandler *performance.Handler
	ActivitiesHandler  *activities.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		params.ProfilesHandler.MountRoutes(r)
		params.TasksHandler.MountRoutes(r)
		params.PerformanceHandler.MountRoutes(r)
		params.ActivitiesHandler.MountRoutes(r)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
