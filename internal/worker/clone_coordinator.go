package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ludexhq/ludex/internal/metrics"
	"github.com/ludexhq/ludex/internal/mirror"
)

// Syncer is the slice of a mirrored collection the coordinator drives.
// Satisfied by mirror.Syncer.
type Syncer interface {
	Endpoint() string
	CloneCollection(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	UpstreamCount(ctx context.Context) (uint64, error)
}

// CloneCoordinator rebuilds the mirrored collections from the upstream,
// optionally once at startup and/or on a fixed interval. Collections are
// cloned sequentially; a full cycle can take a long time and the upstream
// rate limiter throttles the pages anyway, so there is nothing to gain
// from parallel clones.
type CloneCoordinator struct {
	collections []Syncer
	onStart     bool
	interval    time.Duration
}

// NewCloneCoordinator creates a clone coordinator. An interval of zero
// disables periodic recloning; onStart=false disables the startup clone.
func NewCloneCoordinator(collections []Syncer, onStart bool, interval time.Duration) *CloneCoordinator {
	return &CloneCoordinator{
		collections: collections,
		onStart:     onStart,
		interval:    interval,
	}
}

// Run starts the coordinator loop. Blocks until ctx is cancelled, or
// returns early when neither a startup clone nor an interval is
// configured.
func (c *CloneCoordinator) Run(ctx context.Context) {
	slog.Info("clone coordinator started",
		"component", "worker",
		"worker", "clone-coordinator",
		"collections", len(c.collections),
		"on_start", c.onStart,
		"interval", c.interval.String(),
	)

	if c.onStart {
		c.cloneAll(ctx)
	}

	if c.interval <= 0 {
		slog.Info("clone coordinator finished",
			"component", "worker",
			"worker", "clone-coordinator",
			"reason", "no_reclone_interval",
		)
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("clone coordinator stopped",
				"component", "worker",
				"worker", "clone-coordinator",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.cloneAll(ctx)
		}
	}
}

// cloneAll runs one full clone cycle over every collection, continuing on
// individual failures. Each cycle carries a job id so the per-collection
// logs of one cycle can be correlated.
func (c *CloneCoordinator) cloneAll(ctx context.Context) {
	job := ulid.Make().String()
	start := time.Now()

	slog.Info("clone cycle started",
		"component", "worker",
		"worker", "clone-coordinator",
		"job_id", job,
		"collections", len(c.collections),
	)

	var succeeded, failed int
	var totalItems int64

	for _, col := range c.collections {
		if ctx.Err() != nil {
			return // Graceful shutdown
		}

		items, ok := c.cloneCollection(ctx, job, col)
		if ok {
			succeeded++
			totalItems += items
		} else {
			failed++
		}
	}

	slog.Info("clone cycle completed",
		"component", "worker",
		"worker", "clone-coordinator",
		"job_id", job,
		"collections_total", len(c.collections),
		"collections_succeeded", succeeded,
		"collections_failed", failed,
		"items_cloned", totalItems,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// cloneCollection clones a single collection and reports the local versus
// upstream count drift afterwards. Returns: items cloned, success.
func (c *CloneCoordinator) cloneCollection(ctx context.Context, job string, col Syncer) (int64, bool) {
	start := time.Now()
	endpoint := col.Endpoint()

	items, err := col.CloneCollection(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, false // Graceful shutdown
		}
		if errors.Is(err, mirror.ErrCloneInProgress) {
			slog.Warn("clone skipped",
				"component", "worker",
				"worker", "clone-coordinator",
				"endpoint", endpoint,
				"job_id", job,
				"reason", "clone_in_progress",
			)
			metrics.CloneRuns.WithLabelValues(endpoint, "skipped").Inc()
			return 0, false
		}
		slog.Error("clone failed",
			"component", "worker",
			"worker", "clone-coordinator",
			"endpoint", endpoint,
			"job_id", job,
			"error", err,
		)
		metrics.CloneRuns.WithLabelValues(endpoint, "error").Inc()
		return 0, false
	}

	metrics.CloneRuns.WithLabelValues(endpoint, "ok").Inc()
	metrics.CloneDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	slog.Info("clone completed",
		"component", "worker",
		"worker", "clone-coordinator",
		"endpoint", endpoint,
		"job_id", job,
		"items", items,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	c.reportDrift(ctx, job, col)
	return items, true
}

// reportDrift compares the local and upstream counts after a clone. The
// upstream keeps moving while a clone pages through it, so small drift is
// normal; it is logged, never acted on.
func (c *CloneCoordinator) reportDrift(ctx context.Context, job string, col Syncer) {
	endpoint := col.Endpoint()

	local, err := col.Count(ctx)
	if err != nil {
		slog.Warn("local count unavailable after clone",
			"component", "worker",
			"worker", "clone-coordinator",
			"endpoint", endpoint,
			"job_id", job,
			"error", err,
		)
		return
	}
	metrics.CatalogDocuments.WithLabelValues(endpoint).Set(float64(local))

	upstream, err := col.UpstreamCount(ctx)
	if err != nil {
		slog.Warn("upstream count unavailable after clone",
			"component", "worker",
			"worker", "clone-coordinator",
			"endpoint", endpoint,
			"job_id", job,
			"error", err,
		)
		return
	}

	if drift := int64(upstream) - local; drift != 0 {
		slog.Warn("count drift after clone",
			"component", "worker",
			"worker", "clone-coordinator",
			"endpoint", endpoint,
			"job_id", job,
			"local", local,
			"upstream", upstream,
			"drift", drift,
		)
	}
}
