// Package database provides connection setup for MariaDB and Redis.
// Both connections are created once at startup and shared through
// dependency injection. MariaDB backs the local event store; Redis holds
// the sessions written by the Workdeck login service.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// MariaDB driver, registered for database/sql.
	_ "github.com/go-sql-driver/mysql"

	"github.com/workdeck/planner/internal/config"
)

// mariaDBMaxRetries bounds how often the startup ping is retried.
const mariaDBMaxRetries = 10

// NewMariaDB opens a MariaDB connection pool and pings it until it answers,
// backing off exponentially between attempts. ctx aborts the wait.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// MariaDB may still be starting when the planner container launches.
	backoff := time.Second
	var pingErr error
	for attempt := 1; attempt <= mariaDBMaxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pingErr = db.PingContext(pingCtx)
		cancel()
		if pingErr == nil {
			slog.Info("connected to mariadb", slog.Int("attempt", attempt))
			return db, nil
		}
		if attempt == mariaDBMaxRetries {
			break
		}

		slog.Warn("mariadb not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("waiting for mariadb: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("pinging mariadb after %d attempts: %w", mariaDBMaxRetries, pingErr)
}
