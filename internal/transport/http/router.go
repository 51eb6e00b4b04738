package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/apperror"
	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	"github.com/Hemant-14942/CodeArena/internal/ratelimit"
	"github.com/Hemant-14942/CodeArena/internal/transport/http/middleware"
	"github.com/Hemant-14942/CodeArena/internal/transport/http/respond"
	"github.com/Hemant-14942/CodeArena/pkg/useragent"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetricsSink is what the router needs from the metrics registry.
type MetricsSink interface {
	middleware.RequestObserver
	RateLimited()
	Handler() http.Handler
}

type RouterConfig struct {
	Auth          *AuthHandler
	OAuth         *OAuthHandler // nil disables the Google routes
	Authenticator middleware.Authenticator
	Errors        respond.Formatter
	Logger        *zap.Logger

	Metrics        MetricsSink
	Limiter        ratelimit.Limiter
	AllowedOrigins []string
	BodyLimit      int64

	// ClientIP resolves the caller address used for rate limiting and
	// logs. Defaults to the socket peer.
	ClientIP func(*http.Request) string

	// Health maps a dependency name to its check.
	Health map[string]Pinger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.L()
	}
	if cfg.ClientIP == nil {
		cfg.ClientIP = useragent.ExtractIPAddress
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recover(cfg.Errors),
		middleware.RequestID(),
		middleware.ClientIP(cfg.ClientIP),
		middleware.Logging(cfg.Logger),
	)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.AllowedOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		cfg.Errors.Error(w, r, apperror.NotFound("Can't find "+r.URL.Path+" on this server!"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		cfg.Errors.Error(w, r, apperror.NotFound("Can't find "+r.URL.Path+" on this server!"))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"message": "API is running..."})
	})
	r.Get("/healthz", healthHandler(cfg.Health, cfg.Errors))
	if cfg.Metrics != nil {
		r.Handle("/metrics", middleware.Chain(cfg.Metrics.Handler(), middleware.NoStore()))
	}

	r.Route("/api", func(r chi.Router) {
		var onReject func()
		if cfg.Metrics != nil {
			onReject = cfg.Metrics.RateLimited
		}
		r.Use(
			middleware.RateLimit(middleware.RateLimitConfig{
				Limiter:   cfg.Limiter,
				Formatter: cfg.Errors,
				OnReject:  onReject,
			}),
			middleware.BodyLimit(cfg.BodyLimit),
		)

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.NoStore())
			protect := middleware.Protect(cfg.Authenticator, cfg.Errors)

			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
			r.Post("/refresh", cfg.Auth.Refresh)
			r.With(protect).Get("/logout", cfg.Auth.Logout)
			r.With(protect).Post("/logout-all", cfg.Auth.LogoutAll)
			r.With(protect).Get("/sessions", cfg.Auth.Sessions)
			r.With(protect).Get("/me", cfg.Auth.Me)

			if cfg.OAuth != nil {
				r.Get("/google/login", cfg.OAuth.GoogleLogin)
				r.Get("/google/callback", cfg.OAuth.GoogleCallback)
			}
		})
	})

	return r
}

func healthHandler(checks map[string]Pinger, f respond.Formatter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				logger.From(r.Context()).Warn("health check failed", zap.String("dependency", name), logger.Err(err))
				f.Error(w, r, apperror.Unavailable(err))
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
