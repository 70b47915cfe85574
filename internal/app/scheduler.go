package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/johnbyeon/feelscore-sub000/internal/adapter/metrics"
	"github.com/johnbyeon/feelscore-sub000/internal/domain"
	"github.com/johnbyeon/feelscore-sub000/internal/platform/correlation"
)

// snapshotHours are the server-local wall-clock hours at which snapshots fire.
var snapshotHours = [...]int{0, 6, 12, 18}

// ErrRunInProgress is returned by RunOnce when a previous run has not finished.
var ErrRunInProgress = errors.New("snapshot run already in progress")

// RunReport summarizes one snapshot run.
type RunReport struct {
	Slot      time.Time
	Persisted int
	Failed    int
	// Skipped is set when another instance holds the slot.
	Skipped bool
}

// SnapshotScheduler persists one snapshot per category of the all-time
// dashboard at fixed times of day. Runs are serialized in-process; with a
// SlotLocker, at most one instance snapshots each slot.
type SnapshotScheduler struct {
	dashboard *Dashboard
	snapshots domain.SnapshotRepository
	locker    domain.SlotLocker
	clock     clockwork.Clock
	metrics   *metrics.StatsMetrics

	mu sync.Mutex
}

// NewSnapshotScheduler creates a scheduler. locker may be nil for single-instance deployments.
func NewSnapshotScheduler(dashboard *Dashboard, snapshots domain.SnapshotRepository, locker domain.SlotLocker, clock clockwork.Clock, m *metrics.StatsMetrics) *SnapshotScheduler {
	return &SnapshotScheduler{
		dashboard: dashboard,
		snapshots: snapshots,
		locker:    locker,
		clock:     clock,
		metrics:   m,
	}
}

// Run fires a snapshot at every slot until ctx is cancelled.
func (s *SnapshotScheduler) Run(ctx context.Context) {
	for {
		now := s.clock.Now()
		next := NextSlot(now)
		slog.DebugContext(ctx, "Snapshot scheduler waiting", "next_slot", next)

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(next.Sub(now)):
		}

		report, err := s.runSlot(ctx, next)
		if err != nil {
			slog.ErrorContext(ctx, "Snapshot run failed", "slot", next, "error", err)
			continue
		}
		if !report.Skipped {
			slog.InfoContext(ctx, "Snapshot run complete", "slot", next, "persisted", report.Persisted, "failed", report.Failed)
		}
	}
}

// RunOnce snapshots the slot containing the current time.
func (s *SnapshotScheduler) RunOnce(ctx context.Context) (RunReport, error) {
	return s.runSlot(ctx, CurrentSlot(s.clock.Now()))
}

func (s *SnapshotScheduler) runSlot(ctx context.Context, slot time.Time) (RunReport, error) {
	ctx = correlation.EnsureJob(ctx, "snapshot")
	report := RunReport{Slot: slot}

	if !s.mu.TryLock() {
		s.metrics.SnapshotRuns.WithLabelValues("overlap").Inc()
		return report, ErrRunInProgress
	}
	defer s.mu.Unlock()

	if s.locker != nil {
		acquired, err := s.locker.TryAcquire(ctx, slot)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "Snapshot slot lock unavailable, running unguarded", "slot", slot, "error", err)
		case !acquired:
			slog.DebugContext(ctx, "Snapshot slot held by another instance", "slot", slot)
			s.metrics.SnapshotRuns.WithLabelValues("skipped").Inc()
			report.Skipped = true
			return report, nil
		}
	}

	forest, err := s.dashboard.Stats(ctx, domain.WindowAll)
	if err != nil {
		s.metrics.SnapshotRuns.WithLabelValues("error").Inc()
		s.releaseSlot(ctx, slot)
		return report, err
	}

	createdAt := s.clock.Now()
	for _, node := range domain.Flatten(forest) {
		snap := domain.Snapshot{
			CategoryID:   node.CategoryID,
			Score:        node.Score,
			CommentCount: node.CommentCount,
			CreatedAt:    createdAt,
		}
		if err := s.snapshots.Save(ctx, snap); err != nil {
			slog.WarnContext(ctx, "Failed to persist snapshot", "category_id", node.CategoryID, "error", err)
			s.metrics.SnapshotsFailed.Inc()
			report.Failed++
			continue
		}
		s.metrics.SnapshotsSaved.Inc()
		report.Persisted++
	}

	outcome := "ok"
	if report.Failed > 0 {
		outcome = "partial"
	}
	s.metrics.SnapshotRuns.WithLabelValues(outcome).Inc()
	return report, nil
}

// releaseSlot gives the slot back after a failed rollup so another instance may retry it.
func (s *SnapshotScheduler) releaseSlot(ctx context.Context, slot time.Time) {
	if s.locker == nil {
		return
	}
	if err := s.locker.Release(ctx, slot); err != nil {
		slog.WarnContext(ctx, "Failed to release snapshot slot lock", "slot", slot, "error", err)
	}
}

// NextSlot returns the first snapshot time strictly after now, in now's location.
func NextSlot(now time.Time) time.Time {
	y, m, d := now.Date()
	for _, h := range snapshotHours {
		slot := time.Date(y, m, d, h, 0, 0, 0, now.Location())
		if slot.After(now) {
			return slot
		}
	}
	return time.Date(y, m, d+1, snapshotHours[0], 0, 0, 0, now.Location())
}

// CurrentSlot returns the latest snapshot time at or before now.
func CurrentSlot(now time.Time) time.Time {
	y, m, d := now.Date()
	for i := len(snapshotHours) - 1; i >= 0; i-- {
		slot := time.Date(y, m, d, snapshotHours[i], 0, 0, 0, now.Location())
		if !slot.After(now) {
			return slot
		}
	}
	return time.Date(y, m, d-1, snapshotHours[len(snapshotHours)-1], 0, 0, 0, now.Location())
}
