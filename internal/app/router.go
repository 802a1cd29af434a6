package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carloseduardonl/nf-ship-flow/internal/chat"
	"github.com/carloseduardonl/nf-ship-flow/internal/companies"
	"github.com/carloseduardonl/nf-ship-flow/internal/delivery"
	"github.com/carloseduardonl/nf-ship-flow/internal/notifications"
	"github.com/carloseduardonl/nf-ship-flow/internal/observability"
	"github.com/carloseduardonl/nf-ship-flow/internal/realtime"
	"github.com/carloseduardonl/nf-ship-flow/internal/users"
	"github.com/carloseduardonl/nf-ship-flow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	Resolver             ProfileResolver
	DeliveryHandler      *delivery.Handler
	ChatHandler          *chat.Handler
	NotificationsHandler *notifications.Handler
	CompaniesHandler     *companies.Handler
	UsersHandler         *users.Handler
	RealtimeHandler      *realtime.Handler
	JobHandler           *jobs.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Resolver: params.Resolver,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	identity := IdentityMiddleware(params.Logger, params.Resolver)

	// The event stream runs outside the request timeout so connections can
	// stay open; everything else gets the standard timeout and compression.
	r.Group(func(r chi.Router) {
		r.Use(identity)
		params.RealtimeHandler.MountRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(RequestTimeout(params.Config)))
		r.Use(chimw.Compress(5))
		r.Use(identity)

		r.Route("/deliveries", func(r chi.Router) {
			params.DeliveryHandler.MountRoutes(r)
			params.ChatHandler.MountRoutes(r)
		})
		r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		r.Route("/companies", params.CompaniesHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
	})

	return r
}
