// Package main is the entry point for the retailhub background worker.
//
// The worker relays outbox events (postgres only) and periodically
// validates every store's cached stock and credit accounts against the
// ledger. It never repairs; drift is logged for an operator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"retailhub/internal/app"
	"retailhub/internal/infrastructure/notify"
	"retailhub/internal/infrastructure/storage/postgres"
	"retailhub/pkg/config"
	"retailhub/pkg/logger"
)

const purgeAge = 7 * 24 * time.Hour

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer a.Close()

	log.Infow("starting retailhub worker", "storage", cfg.Storage.Driver)

	w := &Worker{
		sweeper: &Sweeper{
			Stores:    []StoreLister{a.Ledger, a.Products, a.Credits},
			Inventory: a.Inspector,
			Credits:   a.Credits,
		},
		cfg:     cfg.Worker,
		log:     log.WithComponent("worker"),
	}
	if a.TxManager != nil {
		w.relay = postgres.NewOutboxRelay(a.TxManager, cfg.Worker.OutboxBatch, cfg.Worker.OutboxMaxRetries, outboxHandler(cfg.Worker))
	} else {
		log.Info("outbox relay disabled: storage driver has no outbox")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

func outboxHandler(cfg config.WorkerConfig) postgres.OutboxHandler {
	if cfg.WebhookURL == "" {
		return notify.LogHandler{}
	}
	return notify.NewWebhookHandler(cfg.WebhookURL, 10*time.Second)
}

// Worker runs the background loops until ctx is done.
type Worker struct {
	relay   *postgres.OutboxRelay
	sweeper *Sweeper
	cfg     config.WorkerConfig
	log     *logger.Logger
}

func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup

	if w.relay != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runOutbox(ctx)
		}()
	}

	if w.cfg.ReconcileInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runSweep(ctx)
		}()
	}

	wg.Wait()
}

func (w *Worker) runOutbox(ctx context.Context) {
	interval := w.cfg.OutboxInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	purgeTicker := time.NewTicker(time.Hour)
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain while full batches keep coming.
			for {
				n, err := w.relay.ProcessBatch(ctx)
				if err != nil {
					w.log.Errorw("outbox batch failed", "error", err)
					break
				}
				if n > 0 {
					w.log.Debugw("outbox batch delivered", "count", n)
				}
				if n < w.cfg.OutboxBatch || ctx.Err() != nil {
					break
				}
			}
		case <-purgeTicker.C:
			n, err := w.relay.PurgePublished(ctx, purgeAge)
			if err != nil {
				w.log.Warnw("outbox purge failed", "error", err)
			} else if n > 0 {
				w.log.Infow("purged published outbox messages", "count", n)
			}
		}
	}
}

func (w *Worker) runSweep(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		w.sweeper.Sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
