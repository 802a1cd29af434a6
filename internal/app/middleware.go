package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/unrolled/secure"

	"github.com/carloseduardonl/nf-ship-flow/internal/observability"
	"github.com/carloseduardonl/nf-ship-flow/internal/platform/httpx"
	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
	"github.com/carloseduardonl/nf-ship-flow/internal/users"
)

// ProfileResolver turns the authenticated user id into a caller profile.
// Satisfied by the users repository.
type ProfileResolver interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (shared.Profile, error)
}

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger   *slog.Logger
	Config   *Config
	Resolver ProfileResolver
	Metrics  *observability.Metrics
}

// identityHeader carries the authenticated user id set by the upstream
// gateway. Authentication itself happens there; here it is only resolved
// into a profile and rejected if unknown or deactivated.
const identityHeader = "X-User-ID"

// IdentityMiddleware resolves the caller profile and stores it in context.
func IdentityMiddleware(logger *slog.Logger, resolver ProfileResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(identityHeader)
			if raw == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing "+identityHeader+" header")
				return
			}
			userID, err := uuid.Parse(raw)
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid "+identityHeader+" header")
				return
			}
			profile, err := resolver.GetProfile(r.Context(), userID)
			if err != nil {
				if errors.Is(err, users.ErrNotFound) {
					httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unknown or inactive user")
					return
				}
				logger.Error("resolve caller profile", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			ctx := shared.ContextWithProfile(r.Context(), &profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MiddlewareStack installs the default middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	// Timeout and Compress are applied per route group in the router: the
	// SSE stream must outlive the request timeout and stay unbuffered.
	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, func(next http.Handler) http.Handler {
			return cfg.Metrics.Middleware(next)
		})
	}
	return middlewares
}

// RequestTimeout returns the configured per-request timeout.
func RequestTimeout(cfg *Config) time.Duration {
	if cfg != nil && cfg.AppRequestTimeout > 0 {
		return cfg.AppRequestTimeout
	}
	return 30 * time.Second
}
