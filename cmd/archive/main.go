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

	"kind4-archive/infrastructure/http/server"
	"kind4-archive/internal"
	"kind4-archive/observability"
	"kind4-archive/repositories"
	"kind4-archive/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes reported to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Archive terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the store, the service and the HTTP server, then blocks until a signal
// or a server failure. Deferred cleanups run before the exit code reaches main.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	driver, err := config.Driver()
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Store
	repository, closeStore, err := openRepository(ctx, config, driver, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer closeStore()

	// 3. Metrics & Service
	collector := observability.NewCollector()
	defer func() { _ = collector.Shutdown(context.Background()) }()
	metrics, err := observability.NewArchiveMetrics(collector.Provider())
	if err != nil {
		return exitRuntime, fmt.Errorf("metrics setup failed: %w", err)
	}
	archiveService := services.NewArchiveService(repository, metrics, logger)

	configureSniffing(config)

	if logger.Enabled(ctx, slog.LevelDebug) {
		stats := func(ctx context.Context) map[string]any {
			snapshot, err := collector.Snapshot(ctx)
			if err != nil {
				return map[string]any{"error": err.Error()}
			}
			result := make(map[string]any, len(snapshot))
			for name, value := range snapshot {
				result[name] = value
			}
			return result
		}
		debugServer := internal.StartDebugServer(logger, config.DebugPort, internal.DebugHandler(logger, repository, nil, stats))
		defer func() { _ = debugServer.Close() }()
	}

	// 4. HTTP Server
	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           server.LoggingMiddleware(logger, server.NewArchiveServer(logger, archiveService, int64(config.MaxBodySize))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting archive server", "address", config.Address(), "store", driver, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 5. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 6. Graceful Shutdown
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return exitRuntime, fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func openRepository(ctx context.Context, config internal.Config, driver internal.StoreDriver, logger *slog.Logger) (repositories.IArchiveRepository, func(), error) {
	switch driver {
	case internal.StorePostgres:
		pool, err := pgxpool.New(ctx, config.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		repository, err := repositories.NewPostgresArchiveRepository(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository, func() {
			logger.Info("Closing Postgres pool...")
			pool.Close()
		}, nil
	default:
		db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		return repositories.NewArchiveRepository(db, logger), func() {
			logger.Info("Closing BadgerDB...")
			_ = db.Close()
		}, nil
	}
}

// configureSniffing lets mimetype read a whole PUT body. Bodies are already bounded by
// MAX_BODY_SIZE, and a large event cut at the default window no longer parses as JSON.
func configureSniffing(config internal.Config) {
	mimetype.SetLimit(uint32(config.MaxBodySize))
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}
