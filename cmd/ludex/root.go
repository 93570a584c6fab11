package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ludexhq/ludex/internal/api"
	"github.com/ludexhq/ludex/internal/config"
	"github.com/ludexhq/ludex/internal/igdb"
	"github.com/ludexhq/ludex/internal/match"
	"github.com/ludexhq/ludex/internal/mirror"
	"github.com/ludexhq/ludex/internal/store"
	"github.com/ludexhq/ludex/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ludex",
	Short: "Ludex - Game Catalog Service",
	Long:  "Mirrors the IGDB catalog into MongoDB and serves game lookups, searches and title matching over HTTP.",
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	// 1. Signal handling
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 2. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 3. Initialize logger
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	slog.Info("configuration loaded", "log_level", cfg.Log.Level)

	// 4. Connect the mirror database
	st, err := store.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return err
	}
	slog.Info("store connected", "database", cfg.Mongo.Database)

	// 5. Upstream client and mirror
	upstream := igdb.NewClient(cfg.IGDB.BaseURL,
		igdb.StaticCredentials{ClientID: cfg.IGDB.ClientID, Token: cfg.IGDB.Token},
		time.Duration(cfg.IGDB.RequestTimeout), cfg.IGDB.RequestsPerSecond)

	m := mirror.New(st, upstream, mirror.Config{
		WebhookRoot:   cfg.IGDB.WebhookRoot,
		WebhookSecret: cfg.IGDB.WebhookSecret,
	}, logger)
	if err := m.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensuring indexes: %w", err)
	}
	slog.Info("mirror initialized")

	// 6. Matcher and HTTP router
	matcher := match.New(m, logger)
	handler := api.NewHandler(m, matcher, m, cfg.IGDB.WebhookSecret, Version, logger)
	router := api.NewRouter(handler)
	slog.Info("router initialized")

	// 7. Configure HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// 8. Clone coordinator
	var wg sync.WaitGroup
	collections := make([]worker.Syncer, 0, len(m.All()))
	for _, s := range m.All() {
		collections = append(collections, s)
	}
	coordinator := worker.NewCloneCoordinator(collections, cfg.Clone.OnStart, time.Duration(cfg.Clone.Interval))
	startWorker(ctx, &wg, "clone-coordinator", coordinator.Run)

	// 9. Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		// Any other error indicates an actual server failure that should trigger shutdown.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel() // Trigger shutdown on server failure
		}
	}()

	// 10. Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// 11. Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// 11a. Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// 11b. Wait for workers to complete
	wg.Wait()

	// 11c. Close store
	if err := st.Close(shutdownCtx); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}

// resolveMirror connects the store and builds the mirror for one-shot
// commands. The caller owns closing the returned store.
func resolveMirror(ctx context.Context) (*mirror.Mirror, *store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, nil, err
	}

	upstream := igdb.NewClient(cfg.IGDB.BaseURL,
		igdb.StaticCredentials{ClientID: cfg.IGDB.ClientID, Token: cfg.IGDB.Token},
		time.Duration(cfg.IGDB.RequestTimeout), cfg.IGDB.RequestsPerSecond)

	m := mirror.New(st, upstream, mirror.Config{
		WebhookRoot:   cfg.IGDB.WebhookRoot,
		WebhookSecret: cfg.IGDB.WebhookSecret,
	}, slog.Default())

	return m, st, nil
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
