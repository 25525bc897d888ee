/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the club dues engine server. Handles
  configuration, dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env when present, then read configuration from environment
  2. Build the zerolog root logger
  3. Open the SQLite snapshot store
  4. Create the engine; seed it from the stored snapshot when one
     exists, otherwise from the configured defaults
  5. Start the recompute scheduler
  6. Serve HTTP with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections (30s drain)
  2. Stop the scheduler
  3. Persist a final snapshot
  4. Close the database connection

ENVIRONMENT:
  See the config package for the full variable list. Example:

    PORT=8080 DB_PATH=./data/dues.db LOG_FORMAT=json ./server

SEE ALSO:
  - config/config.go: Variables and defaults
  - api/server.go: Router configuration
  - engine/scheduler.go: Recompute driver lifecycle
*/
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

	"github.com/joho/godotenv"

	"github.com/clubdesk/dues-engine/api"
	"github.com/clubdesk/dues-engine/config"
	"github.com/clubdesk/dues-engine/dues"
	"github.com/clubdesk/dues-engine/engine"
	"github.com/clubdesk/dues-engine/logger"
	"github.com/clubdesk/dues-engine/store/sqlite"
)

func main() {
	// .env is optional; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Setup(cfg.GetLoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("failed to open snapshot store")
	}
	defer store.Close()

	// Engine, seeded from the stored snapshot when one exists.
	defaults := dues.InvoiceContext{
		InvoiceYear:  cfg.InvoiceYear,
		TaxPercent:   cfg.TaxPercent,
		CurrencyRate: cfg.CurrencyRate,
	}
	eng := engine.New(defaults, cfg.CacheCapacity, logger.WithComponent(log, "engine"))

	sched := engine.NewScheduler(eng, engine.SchedulerConfig{
		Debounce:  cfg.Debounce(),
		SliceSize: cfg.SliceSize,
	}, logger.WithComponent(log, "scheduler"))
	sched.Start()
	defer sched.Stop()

	ctx := context.Background()
	snap, err := store.LoadSnapshot(ctx)
	switch {
	case err == nil:
		if err := eng.ReplaceRoster(snap.Members); err != nil {
			log.Fatal().Err(err).Msg("stored snapshot roster rejected")
		}
		if err := eng.SetSettings(snap.Settings); err != nil {
			log.Fatal().Err(err).Msg("stored snapshot settings rejected")
		}
		log.Info().
			Int("members", len(snap.Members)).
			Int("invoice_year", snap.Settings.InvoiceYear).
			Time("saved_at", snap.SavedAt).
			Msg("engine seeded from snapshot")
	case errors.Is(err, sqlite.ErrNoSnapshot):
		log.Info().Int("invoice_year", cfg.InvoiceYear).Msg("no snapshot, starting with empty roster")
	default:
		log.Fatal().Err(err).Msg("failed to load snapshot")
	}

	handler := api.NewHandler(eng, sched, store, logger.WithComponent(log, "api"))
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shut down")
	}

	sched.Stop()

	// Persist the final state so the next start resumes from it.
	final := sqlite.Snapshot{
		Members:  eng.Members(),
		Settings: eng.Settings(),
		SavedAt:  time.Now().UTC(),
	}
	if err := store.SaveSnapshot(shutdownCtx, final); err != nil {
		log.Error().Err(err).Msg("failed to save final snapshot")
	}

	log.Info().Msg("server stopped")
}
