// migrate applies the embedded SQL migrations under a Postgres advisory lock.
//
// Usage: go run ./cmd/migrate
package main

import (
	"context"
	"errors"
	"time"

	"parstock/internal/config"
	"parstock/internal/db"
	"parstock/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").WithError(err).Fatal("config")
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect")
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool, migrations.FS, logger)
	if err != nil {
		if errors.Is(err, db.ErrMigrationLocked) {
			logger.Fatal("another migrator is currently running")
		}
		logger.WithError(err).Fatal("migrate")
	}
	logger.WithField("applied", applied).Info("all migrations processed")
}
