package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/trainingbot/core/logger"
)

const (
	component = "db"

	// readyTimeout bounds how long a postgres server may take to accept
	// connections after the bot starts.
	readyTimeout = 30 * time.Second
	pingEvery    = 2 * time.Second
)

// Connect opens a pool for cfg and waits until the database answers.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	start := time.Now()
	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	attrs := []slog.Attr{
		slog.String("driver", cfg.Driver),
		slog.String("db", cfg.Target()),
	}
	if err := waitReady(ctx, db, cfg.Driver); err != nil {
		_ = db.Close()
		logger.Error(ctx, component, "db.connect", append(attrs,
			slog.String("status", "fail"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)...)
		return nil, fmt.Errorf("db connect: %w", err)
	}
	logger.Info(ctx, component, "db.connect", append(attrs,
		slog.String("status", "ok"),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.Took(start)),
	)...)
	return db, nil
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// waitReady pings db until it answers. Postgres gets readyTimeout to come
// up; a sqlite file either opens at once or not at all.
func waitReady(ctx context.Context, db pinger, driver string) error {
	if driver != DriverPostgres {
		return db.PingContext(ctx)
	}
	return pingUntil(ctx, db, readyTimeout, pingEvery)
}

func pingUntil(ctx context.Context, db pinger, timeout, every time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, err)
		case <-time.After(every):
		}
	}
}
