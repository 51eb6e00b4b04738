package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/Hemant-14942/CodeArena/internal/config"
	"github.com/Hemant-14942/CodeArena/internal/metrics"
	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	"github.com/Hemant-14942/CodeArena/internal/ratelimit"
	"github.com/Hemant-14942/CodeArena/internal/repository"
	"github.com/Hemant-14942/CodeArena/internal/repository/memory"
	"github.com/Hemant-14942/CodeArena/internal/repository/postgres"
	redisrepo "github.com/Hemant-14942/CodeArena/internal/repository/redis"
	"github.com/Hemant-14942/CodeArena/internal/service/session"
	transporthttp "github.com/Hemant-14942/CodeArena/internal/transport/http"
	"github.com/Hemant-14942/CodeArena/internal/transport/http/respond"
	"github.com/Hemant-14942/CodeArena/pkg/auth"
	"github.com/Hemant-14942/CodeArena/pkg/httputil"
	"github.com/Hemant-14942/CodeArena/pkg/useragent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// sessionBackend is the key-value store holding sessions, plus the Redis
// client when there is one.
type sessionBackend struct {
	store  repository.KVStore
	client *redis.Client
}

func (b *sessionBackend) Close() {
	if b.client != nil {
		_ = b.client.Close()
	}
}

func openSessionBackend(ctx context.Context, cfg *config.Config) (*sessionBackend, error) {
	if cfg.SessionStore == config.StoreMemory {
		logger.Named("session").Warn("using in-process session store; sessions are lost on restart")
		return &sessionBackend{store: memory.New()}, nil
	}

	client, err := redisrepo.NewClient(ctx, redisrepo.Options{
		URL:      cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	return &sessionBackend{store: redisrepo.NewStore(client), client: client}, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	return postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
}

func newSessionManager(cfg *config.Config, store repository.KVStore) *session.Manager {
	return session.NewManager(store, session.ManagerConfig{
		Timeout:     cfg.StoreTimeout,
		ScanTimeout: cfg.ScanTimeout,
	})
}

// app holds everything the serve command wires together.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	backend  *sessionBackend
	sessions *session.Manager
	auth     *session.AuthService
	metrics  *metrics.Metrics
	limiter  ratelimit.Limiter
	clientIP *useragent.IPResolver
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	clientIP, err := useragent.NewIPResolver(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backend, err := openSessionBackend(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		backend.Close()
		_ = db.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	codec := auth.NewCodec(auth.CodecConfig{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.TokenIssuer,
	})
	sessions := newSessionManager(cfg, backend.store)
	authSvc := session.NewAuthService(
		postgres.NewUserRepo(db),
		auth.NewHasher(cfg.BcryptCost),
		codec,
		sessions,
		session.WithRecorder(m),
	)

	var limiter ratelimit.Limiter
	if backend.client != nil {
		limiter = ratelimit.NewRedisLimiter(backend.client, "ratelimit:", cfg.RateLimitMax, cfg.RateLimitWindow)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	return &app{
		cfg:      cfg,
		db:       db,
		backend:  backend,
		sessions: sessions,
		auth:     authSvc,
		metrics:  m,
		limiter:  limiter,
		clientIP: clientIP,
	}, nil
}

func (a *app) Close() {
	a.backend.Close()
	_ = a.db.Close()
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func (a *app) handler() http.Handler {
	errs := respond.Formatter{Production: a.cfg.IsProduction()}
	cookies := httputil.CookieOptions{Secure: a.cfg.IsProduction()}

	var oauth *transporthttp.OAuthHandler
	if a.cfg.OAuth.GoogleEnabled() {
		oauth = transporthttp.NewOAuthHandler(a.auth,
			transporthttp.NewGoogleProvider(a.cfg.OAuth.GoogleLoginConfig), cookies, a.cfg.FrontendURL)
	} else {
		logger.L().Info("google sign-in disabled", zap.String("reason", "GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set"))
	}

	return transporthttp.NewRouter(transporthttp.RouterConfig{
		Auth:           transporthttp.NewAuthHandler(a.auth, errs, cookies, a.cfg.ImageKitURLEndpoint),
		OAuth:          oauth,
		Authenticator:  a.auth,
		Errors:         errs,
		Logger:         logger.Named("http"),
		Metrics:        a.metrics,
		Limiter:        a.limiter,
		AllowedOrigins: a.cfg.AllowedOrigins,
		BodyLimit:      a.cfg.BodyLimitBytes,
		ClientIP:       a.clientIP.ClientIP,
		Health: map[string]transporthttp.Pinger{
			"sessions": a.sessions,
			"postgres": pingFunc(a.db.PingContext),
		},
	})
}
