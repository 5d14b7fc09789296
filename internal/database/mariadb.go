// Package database owns the startup lifecycle of the two backing stores:
// the MariaDB pool (users, refresh tokens, one-time codes, profiles) and
// the Redis client. Both are opened once in main and injected everywhere.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Registers the mysql driver.
	_ "github.com/go-sql-driver/mysql"

	"github.com/tradingsim/tradingsim/internal/config"
)

const (
	pingTimeout     = 5 * time.Second
	maxPingAttempts = 10
)

// NewMariaDB opens the MariaDB pool and waits for the server to answer a
// ping. The wait retries with exponential backoff because the database
// container is usually still warming up when the app container starts.
func NewMariaDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	backoff := time.Second
	var pingErr error

	for attempt := 1; attempt <= maxPingAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		pingErr = db.PingContext(ctx)
		cancel()

		if pingErr == nil {
			return db, nil
		}
		if attempt == maxPingAttempts {
			break
		}

		slog.Warn("mariadb not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)
		time.Sleep(backoff)
		backoff = min(backoff*2, 30*time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("pinging mariadb after %d attempts: %w", maxPingAttempts, pingErr)
}
