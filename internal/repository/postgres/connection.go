package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	_ "github.com/lib/pq"
)

type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, connStr string, pool PoolOptions) (*sql.DB, error) {
	if connStr == "" {
		return nil, fmt.Errorf("postgres: DATABASE_URL is empty")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	logger.Named("postgres").Info("database connected")
	return db, nil
}
