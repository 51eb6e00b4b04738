package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/config"
	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	"github.com/Hemant-14942/CodeArena/internal/repository/postgres"
	"github.com/Hemant-14942/CodeArena/internal/service/cleanup"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.Named("server")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info("running database migrations")
	if err := postgres.RunMigrations(ctx, a.db); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return cleanup.NewWorker(a.sessions, a.metrics, cfg.CleanupInterval).Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("server is shutting down")

		timeout := config.GetEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info("server exited gracefully")
		return nil
	})

	return g.Wait()
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db); err != nil {
		return err
	}
	logger.Named("migrate").Info("database migration completed successfully")
	return nil
}
