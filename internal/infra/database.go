package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultPoolMaxConns        = 10
	defaultPoolHealthCheck     = 30 * time.Second
	defaultPoolMaxConnIdleTime = 5 * time.Minute
)

// NewPostgresPool configures and returns a PostgreSQL connection pool tagged
// with appName. The initial ping is retried until ctx expires so the API can
// start alongside a database that is still booting.
func NewPostgresPool(ctx context.Context, url, appName string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	// URL parameters win over these defaults
	if !strings.Contains(url, "pool_max_conns") {
		cfg.MaxConns = defaultPoolMaxConns
	}
	cfg.HealthCheckPeriod = defaultPoolHealthCheck
	cfg.MaxConnIdleTime = defaultPoolMaxConnIdleTime
	if appName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = strings.ToLower(appName)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := retryPing(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// retryPing retries ping with exponential backoff bounded by ctx.
func retryPing(ctx context.Context, ping func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		return ping(ctx)
	}, backoff.WithContext(b, ctx))
}
