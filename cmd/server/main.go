package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "parstock/internal/adapters/web"
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

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("database")
	}
	defer pool.Close()

	reports, err := cache.Connect(ctx, cfg.RedisAddr, cfg.ReportCacheTTL, logger)
	if err != nil {
		// Reports still work uncached.
		config.LogError(logger, "main", "main", "redis connect", cfg.RedisAddr, err)
		reports = cache.New(nil, cfg.ReportCacheTTL, logger)
	}
	defer reports.Close()

	rules := core.ParRules{RiskRatio: cfg.RiskRatio}
	svc := app.NewAppService(pool, app.NewServices(pool, cfg), core.DefaultPolicy(), rules, reports, logger)

	handler := webAdapter.NewHandler(svc, webAdapter.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		CookieSecure:   cfg.CookieSecure,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("server shutdown")
		}
	}()

	logger.WithField("port", cfg.ServerPort).Info("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("server")
	}
	logger.Info("server stopped")
}
