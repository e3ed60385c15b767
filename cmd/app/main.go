// app runs operator commands against the database.
//
// Usage: app <command> [args]
//
// Commands act as the user named by PARSTOCK_USER (default "admin"). When that
// user does not exist yet, only create-user is useful: it runs as a built-in
// administrator so the first account can be bootstrapped.
package main

import (
	"context"
	"errors"
	"os"

	"parstock/internal/adapters/cli"
	"parstock/internal/app"
	"parstock/internal/cache"
	"parstock/internal/config"
	"parstock/internal/core"
	"parstock/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").WithError(err).Fatal("config")
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("database")
	}
	defer pool.Close()

	services := app.NewServices(pool, cfg)
	rules := core.ParRules{RiskRatio: cfg.RiskRatio}
	svc := app.NewAppService(pool, services, core.DefaultPolicy(), rules, cache.New(nil, 0, logger), logger)

	username := os.Getenv("PARSTOCK_USER")
	if username == "" {
		username = "admin"
	}
	who := core.Principal{Username: "system", Role: core.RoleAdmin}
	if u, err := services.Users.GetByUsername(ctx, username); err == nil {
		if who, err = svc.ResolvePrincipal(ctx, u.ID); err != nil {
			logger.WithError(err).Fatal("operator")
		}
	} else if !errors.Is(err, core.ErrNotFound) {
		logger.WithError(err).Fatal("operator")
	} else {
		logger.WithField("user", username).Warn("operator user not found, running as built-in administrator")
	}

	if err := cli.Run(ctx, svc, who, os.Args[1:], os.Stdout); err != nil {
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
