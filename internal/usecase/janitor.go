package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/pricecheck/backend/internal/domain"
	"github.com/pricecheck/backend/internal/logging"
)

// Janitor deletes sessions older than the retention age
type Janitor struct {
	repo      domain.SessionRepository
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewJanitor creates a janitor sweeping every interval
func NewJanitor(repo domain.SessionRepository, retention, interval time.Duration, logger *slog.Logger) *Janitor {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{
		repo:      repo,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		logger:    logging.OrDefault(logger).With("component", "janitor"),
	}
}

// Sweep removes expired sessions once and reports how many were deleted
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.retention)
	n, err := j.repo.DeleteSessionsOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("retention sweep failed", "error", err)
		return 0, err
	}
	if n > 0 {
		j.logger.Info("removed expired sessions", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Run sweeps on every tick until ctx is canceled
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = j.Sweep(ctx)
		}
	}
}
