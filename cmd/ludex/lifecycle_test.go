package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// logCapture collects structured log entries emitted through slog.
type logCapture struct {
	mu      sync.Mutex
	entries []map[string]any
}

func (c *logCapture) install(t *testing.T) {
	t.Helper()
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(old) })
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err == nil {
		c.entries = append(c.entries, entry)
	}
	return len(p), nil
}

// find returns the first captured entry with the given message, or nil.
func (c *logCapture) find(msg string) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e["msg"] == msg {
			return e
		}
	}
	return nil
}

func TestStartWorker_RunsAndLogsLifecycle(t *testing.T) {
	capture := &logCapture{}
	capture.install(t)

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	ran := atomic.Bool{}
	startWorker(ctx, &wg, "test-worker", func(ctx context.Context) {
		ran.Store(true)
		<-ctx.Done()
	})

	// Give the worker time to start
	time.Sleep(10 * time.Millisecond)
	if !ran.Load() {
		t.Error("worker function was not called")
	}

	cancel()
	wg.Wait()

	started := capture.find("worker started")
	if started == nil {
		t.Fatal("expected 'worker started' log message")
	}
	if started["worker"] != "test-worker" {
		t.Errorf("worker attribute = %v, want 'test-worker'", started["worker"])
	}
	if capture.find("worker stopped") == nil {
		t.Error("expected 'worker stopped' log message")
	}
}

func TestStartWorker_StopsOnContextCancel(t *testing.T) {
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	startWorker(ctx, &wg, "cancel-test", func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})

	cancel()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("worker did not respond to context cancellation")
	}

	wg.Wait()
}

// TestStartWorker_WaitGroupTracksCleanup verifies wg.Wait() does not
// return until workers finish their post-cancel cleanup, which is what
// keeps the store open until every worker is done.
func TestStartWorker_WaitGroupTracksCleanup(t *testing.T) {
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	cleaned := atomic.Bool{}
	startWorker(ctx, &wg, "cleanup-test", func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		cleaned.Store(true)
	})

	cancel()
	wg.Wait()

	if !cleaned.Load() {
		t.Error("wg.Wait() returned before the worker finished its cleanup")
	}
}

// TestShutdownRespectsTimeout verifies shutdown doesn't hang on requests
// that never finish.
func TestShutdownRespectsTimeout(t *testing.T) {
	blocking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {} // Block forever
	})
	srv := &http.Server{Addr: ":0", Handler: blocking}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	srv.Shutdown(shutdownCtx)
	elapsed := time.Since(start)

	if elapsed > 50*time.Millisecond {
		t.Errorf("shutdown took %v, expected <= 50ms", elapsed)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.level); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
