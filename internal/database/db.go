// internal/database/db.go

// Package database persists sessions and match outcomes. All writes are
// invoked fire-and-forget by the engine's hooks; a failed write is logged by
// the caller and never affects in-memory room state.
package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

var DB *pgxpool.Pool

func connString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)
}

// ConnectDB builds the pool and verifies connectivity once.
func ConnectDB() error {
	config, err := pgxpool.ParseConfig(connString())
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	DB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		DB.Close()
		DB = nil
		return fmt.Errorf("db ping error: %w", err)
	}
	return nil
}

// ConnectLoop retries ConnectDB at a fixed interval until it succeeds or ctx
// is cancelled. No backoff, no attempt cap: writes are simply dropped until
// the database is back.
func ConnectLoop(ctx context.Context, logger *logrus.Logger, interval time.Duration) {
	for {
		err := ConnectDB()
		if err == nil {
			logger.Infof("connected to database at %s:%s", os.Getenv("PG_HOST"), os.Getenv("PG_PORT"))
			return
		}
		logger.Warnf("database connect failed, retrying in %s: %v", interval, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Connected reports whether a usable pool exists.
func Connected() bool { return DB != nil }
