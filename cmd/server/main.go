// Package main is the entry point for the retailhub API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retailhub/internal/app"
	v1 "retailhub/internal/infrastructure/http/v1"
	"retailhub/internal/infrastructure/report"
	"retailhub/pkg/config"
	"retailhub/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: !cfg.App.IsProduction(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting retailhub server", "env", cfg.App.Env, "storage", cfg.Storage.Driver)

	if cfg.JWT.Secret == "" {
		log.Warn("JWT_SECRET is empty; tokens are signed with an empty key")
	}

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer a.Close()

	router := v1.NewRouter(v1.RouterConfig{
		Logger:        log,
		JWTValidator:  a.JWT,
		Recorder:      a.Recorder,
		Inspector:     a.Inspector,
		Products:      a.Products,
		Credits:       a.Credits,
		Renderer:      report.NewPDFRenderer(cfg.Report.Locale),
		DB:            a.DB,
		StorageDriver: cfg.Storage.Driver,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		Development:   !cfg.App.IsProduction(),
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
