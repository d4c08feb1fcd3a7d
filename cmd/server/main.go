/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the promotion engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment, then apply flags
  2. Initialize SQLite store
  3. Seed the ladder if the store has none (ladder file or default preset)
  4. Seed the roster from the roster file if the store has no members
  5. Build the first simulation
  6. Start the effective-date watcher
  7. Configure HTTP router
  8. Start server with graceful shutdown

COMMAND-LINE FLAGS (override PROMOTION_ENGINE_* variables):
  --port, -p        HTTP server port (default: 8080)
  --db              SQLite database path (default: promotion.db)
                    Use ":memory:" for in-memory database
  --ladder          Ladder file (.yaml, .yml or .json) used to seed the store
  --roster          Roster file (.yaml, .yml or .json) loaded into an empty store
  --retirement-age  Retirement age in years (default: 60)
  --origins         Allowed CORS origins, comma separated
  --log-level       debug, info, warn or error

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the watcher
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server --db=./data/roster.db

  # Seed a fresh database from a ladder file and the officer roster
  ./server --db=./data/roster.db --ladder=./ladder.yaml --roster=./officers.json

  # Run with in-memory database on another port
  ./server --db=:memory: -p 3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - config/config.go: Environment variables
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/warp/promotion-engine/api"
	"github.com/warp/promotion-engine/config"
	"github.com/warp/promotion-engine/factory"
	"github.com/warp/promotion-engine/promotion"
	"github.com/warp/promotion-engine/store/sqlite"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, args); err != nil {
		return err
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	seed, err := seedLadder(ctx, store, cfg.LadderFile, logger)
	if err != nil {
		return err
	}

	if err := seedRoster(ctx, store, cfg.RosterFile, logger); err != nil {
		return err
	}

	// Initialize handler
	handler := api.NewHandler(store, logger, cfg.RetirementAge)
	handler.SeedLadder = seed

	// First run; a configuration error is reported by the API, not fatal
	if err := handler.Rebuild(ctx); err != nil && !promotion.IsConfigError(err) {
		return fmt.Errorf("initial simulation: %w", err)
	}

	watcher := api.NewEffectiveDateWatcher(handler)
	watcher.Start()
	defer watcher.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.DBPath, "retirement_age", cfg.RetirementAge)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// applyFlags overrides cfg with every flag given on the command line.
func applyFlags(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	port := fs.IntP("port", "p", cfg.Port, "HTTP server port")
	db := fs.String("db", cfg.DBPath, "SQLite database path")
	ladder := fs.String("ladder", cfg.LadderFile, "ladder file used to seed an empty store")
	roster := fs.String("roster", cfg.RosterFile, "roster file loaded when the store has no members")
	age := fs.Int("retirement-age", cfg.RetirementAge, "retirement age in years")
	origins := fs.StringSlice("origins", cfg.AllowedOrigins, "allowed CORS origins")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Port = *port
	cfg.DBPath = *db
	cfg.LadderFile = *ladder
	cfg.RosterFile = *roster
	cfg.RetirementAge = *age
	cfg.AllowedOrigins = *origins
	cfg.LogLevel = *logLevel
	return cfg.Validate()
}

// seedLadder returns the ladder a reset restores to, and writes it to the
// store when the store has no ladder yet.
func seedLadder(ctx context.Context, store *sqlite.Store, path string, logger *slog.Logger) (promotion.Ladder, error) {
	seed := factory.DefaultLadder()
	source := "default"
	if path != "" {
		l, err := factory.NewLadderFactory().LoadLadderFile(path)
		if err != nil {
			return promotion.Ladder{}, fmt.Errorf("load ladder file: %w", err)
		}
		seed, source = l, path
	}

	has, err := store.HasLadder(ctx)
	if err != nil {
		return promotion.Ladder{}, fmt.Errorf("check ladder: %w", err)
	}
	if has {
		return seed, nil
	}

	if err := store.SaveLadder(ctx, seed); err != nil {
		return promotion.Ladder{}, fmt.Errorf("seed ladder: %w", err)
	}
	logger.Info("ladder seeded", "source", source, "ranks", len(seed.Tiers))
	return seed, nil
}

// seedRoster loads the roster file into a store that has no members yet.
// A store that already holds a roster is left alone.
func seedRoster(ctx context.Context, store *sqlite.Store, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}

	existing, err := store.Roster(ctx)
	if err != nil {
		return fmt.Errorf("check roster: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("roster file ignored, store already has members", "path", path, "members", len(existing))
		return nil
	}

	members, err := factory.NewLadderFactory().LoadRosterFile(path)
	if err != nil {
		return fmt.Errorf("load roster file: %w", err)
	}
	if err := store.SaveRoster(ctx, members); err != nil {
		return fmt.Errorf("seed roster: %w", err)
	}
	logger.Info("roster seeded", "source", path, "members", len(members))
	return nil
}
