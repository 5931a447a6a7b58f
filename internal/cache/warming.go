package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/models"
	"github.com/kjstillabower/weathernow/internal/observability"
)

// ErrSuperseded reports that a cycle finished after a newer cycle had already committed.
var ErrSuperseded = errors.New("superseded by a newer fetch")

// Fetcher runs one full fetch cycle. Implemented by the service layer; declared here to
// avoid a dependency from cache on service.
type Fetcher interface {
	FetchAll(ctx context.Context, query string) (models.Snapshot, error)
}

// Refresher keeps the displayed snapshot current by re-running the fetch cycle for
// whatever query the store last committed.
type Refresher struct {
	fetcher Fetcher
	store   *Store
	logger  *zap.Logger
}

// NewRefresher creates a Refresher over the given fetcher and store.
func NewRefresher(fetcher Fetcher, store *Store, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{fetcher: fetcher, store: store, logger: logger}
}

// WarmDefault fetches location once so the panels have data before the first lookup.
// An empty location is a no-op.
func (r *Refresher) WarmDefault(ctx context.Context, location string) error {
	if location == "" {
		return nil
	}
	r.logger.Info("warming default location", zap.String("query", location))
	return r.run(ctx, location)
}

// Refresh re-fetches the query of the current snapshot. It does nothing before the first
// cycle has committed. A refresh overtaken by a newer lookup is not an error.
func (r *Refresher) Refresh(ctx context.Context) error {
	query := r.store.Snapshot().Query
	if query == "" {
		return nil
	}
	return r.run(ctx, query)
}

// RefreshPeriodic calls Refresh at the given interval until ctx is done.
func (r *Refresher) RefreshPeriodic(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("periodic refresh failed", zap.Error(err))
			}
		}
	}
}

func (r *Refresher) run(ctx context.Context, query string) error {
	start := time.Now()
	observability.RefreshRunsTotal.Inc()
	_, err := r.fetcher.FetchAll(ctx, query)
	duration := time.Since(start).Seconds()
	observability.RefreshDurationSeconds.Observe(duration)
	if errors.Is(err, ErrSuperseded) {
		r.logger.Debug("refresh superseded", zap.String("query", query))
		return nil
	}
	if err != nil {
		observability.RefreshErrorsTotal.Inc()
		return fmt.Errorf("refresh %s: %w", query, err)
	}
	r.logger.Debug("refresh complete", zap.String("query", query), zap.Float64("duration_seconds", duration))
	return nil
}
