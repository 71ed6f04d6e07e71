// Package backfill fills in missing coordinates for directory entries that
// were saved with only an address.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/logistics-locator/internal/domain"
	"github.com/couchcryptid/logistics-locator/internal/observability"
)

// Options tunes the retry policy for provider failures.
type Options struct {
	Region         *domain.BBox
	MaxAttempts    int           // default 3
	InitialBackoff time.Duration // default 200ms
	MaxBackoff     time.Duration // default 5s
}

// Report summarizes one backfill run.
type Report struct {
	Scanned     int `json:"scanned"`
	Pending     int `json:"pending"`
	Geocoded    int `json:"geocoded"`
	NotFound    int `json:"not_found"`
	OutOfRegion int `json:"out_of_region"`
	Invalid     int `json:"invalid"`
	Failed      int `json:"failed"`
}

func (r *Report) record(o domain.Outcome) {
	switch o {
	case domain.OutcomeGeocoded:
		r.Geocoded++
	case domain.OutcomeNotFound:
		r.NotFound++
	case domain.OutcomeOutOfRegion:
		r.OutOfRegion++
	case domain.OutcomeInvalidInput:
		r.Invalid++
	case domain.OutcomeFailed:
		r.Failed++
	}
}

// Runner geocodes entries that have an address but no coordinates and writes
// the result back to the store.
type Runner struct {
	store    domain.DirectoryStore
	geocoder domain.Geocoder
	opts     Options
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates a Runner.
func New(store domain.DirectoryStore, geocoder domain.Geocoder, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = max(5*time.Second, opts.InitialBackoff)
	}
	return &Runner{store: store, geocoder: geocoder, opts: opts, metrics: metrics, logger: logger}
}

// Run makes one pass over the directory, one entry at a time. A cancelled
// context stops the pass and returns the partial report.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	entries, err := r.store.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list directory: %w", err)
	}

	var report Report
	report.Scanned = len(entries)
	r.logger.Info("backfill started", "entries", len(entries))

	for _, e := range entries {
		if !domain.NeedsGeocoding(e) {
			continue
		}
		report.Pending++

		outcome, err := r.process(ctx, e)
		if err != nil && ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.record(outcome)
		r.metrics.BackfillEntries.WithLabelValues(string(outcome)).Inc()
	}

	r.logger.Info("backfill finished",
		"pending", report.Pending,
		"geocoded", report.Geocoded,
		"not_found", report.NotFound,
		"out_of_region", report.OutOfRegion,
		"failed", report.Failed,
	)
	return report, nil
}

// process geocodes a single entry, retrying provider failures with
// exponential backoff.
func (r *Runner) process(ctx context.Context, e domain.DirectoryEntry) (domain.Outcome, error) {
	backoff := r.opts.InitialBackoff

	for attempt := 1; ; attempt++ {
		updated, outcome, err := domain.EnrichWithGeocoding(ctx, e, r.geocoder, r.opts.Region, r.logger)
		if outcome == domain.OutcomeGeocoded {
			if err := r.store.Update(ctx, updated); err != nil {
				r.logger.Error("saving geocoded entry failed", "entry_id", e.ID, "error", err)
				return domain.OutcomeFailed, err
			}
			return outcome, nil
		}
		if outcome != domain.OutcomeFailed {
			return outcome, nil
		}
		if attempt >= r.opts.MaxAttempts || ctx.Err() != nil {
			return outcome, err
		}

		r.logger.Debug("retrying entry", "entry_id", e.ID, "attempt", attempt, "backoff", backoff)
		if !sleepWithContext(ctx, backoff) {
			return outcome, ctx.Err()
		}
		backoff = nextBackoff(backoff, r.opts.MaxBackoff)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
