package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketdata/internal/config"
	"marketdata/internal/job"
	"marketdata/internal/platform/sqlite"
	"marketdata/internal/quote"
	"marketdata/internal/rate"
	jobrepo "marketdata/internal/repository/job"
	quoterepo "marketdata/internal/repository/quote"
	raterepo "marketdata/internal/repository/rate"
	"marketdata/internal/scraper"
	"marketdata/internal/scraper/nasdaq"
	"marketdata/internal/scraper/yahoo"
	"marketdata/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Root context: cancelled on SIGINT/SIGTERM so in-flight scraper workers
	// stop promptly during graceful shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Open database
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Repositories
	quoteRepo := quoterepo.NewRepository(db.DB)
	jobRepo := jobrepo.NewRepository(db.DB)
	rateRepo := raterepo.NewRepository(db.DB)

	// Scraper registry
	registry := scraper.NewRegistry()
	registry.Register(nasdaq.New(nasdaq.WithUserAgent(cfg.Scraper.UserAgent)))
	registry.Register(yahoo.New(
		yahoo.WithWorkers(cfg.Workers),
		yahoo.WithUserAgent(cfg.Scraper.UserAgent),
	))

	// Services
	rateSvc := rate.NewService(rateRepo)
	jobSvc := job.NewService(jobRepo)
	quoteSvc := quote.NewService(quoteRepo, jobRepo, registry,
		quote.WithLookbackMonths(cfg.Scraper.LookbackMonths))

	// Worker pool: picks up pending jobs in the background
	pool := job.NewWorkerPool(jobRepo, quoteSvc, cfg.Workers)
	quoteSvc.SetNotify(pool.Notify)
	poolDone := make(chan struct{})
	go func() {
		pool.Run(rootCtx)
		close(poolDone)
	}()

	// Re-queue interrupted jobs (pending/running) so workers pick them up.
	if err := jobSvc.RecoverStaleJobs(rootCtx); err != nil {
		slog.Error("failed to recover stale jobs", "error", err)
	}
	pool.Notify()

	// HTTP server: rootCtx is used as BaseContext so every request context
	// inherits from it and is cancelled on shutdown.
	srv := server.New(rootCtx, cfg.Port, quoteSvc, rateSvc, jobSvc)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	<-done

	// Cancel root context first so in-flight requests (and their scraper
	// workers) begin winding down immediately.
	rootCancel()

	// Wait for worker pool to drain before shutting down HTTP.
	<-poolDone

	// Then drain connections with a deadline.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
