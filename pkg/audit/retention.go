package audit

import (
	"context"
	"log/slog"
	"time"
)

// RetentionWorker prunes security events past the retention window. It is
// meant to run on one replica only.
type RetentionWorker struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	nowFunc   func() time.Time
}

// NewRetentionWorker creates a RetentionWorker. A nil cfg selects the
// defaults.
func NewRetentionWorker(store *Store, cfg *AuditConfig, logger *slog.Logger) *RetentionWorker {
	if cfg == nil {
		cfg = DefaultAuditConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.RetentionInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionWorker{
		store:     store,
		retention: cfg.Retention(),
		interval:  interval,
		logger:    logger.With("component", "audit-retention"),
		nowFunc:   func() time.Time { return time.Now().UTC() },
	}
}

// Run prunes immediately and then every interval until ctx is cancelled.
// It returns at once when there is nothing to prune.
func (w *RetentionWorker) Run(ctx context.Context) {
	if w.store == nil || w.retention <= 0 {
		w.logger.Info("disabled", "hasStore", w.store != nil, "retention", w.retention)
		return
	}
	w.logger.Info("started", "retention", w.retention, "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.Cleanup(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("stopped")
			return
		case <-ticker.C:
		}
	}
}

// Cleanup runs one pass and returns the number of events removed. Failures
// are logged; the next pass retries.
func (w *RetentionWorker) Cleanup(ctx context.Context) int64 {
	cutoff := w.nowFunc().Add(-w.retention)
	n, err := w.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("cleanup failed", "error", err)
		}
		return 0
	}
	if n > 0 {
		pruned.Add(float64(n))
		w.logger.Info("pruned security events", "deleted", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return n
}
