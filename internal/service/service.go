// Package service runs fetch cycles: one geocode call, then the four dependent
// provider calls in parallel, then a single commit and publish of the resulting
// snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/bus"
	"github.com/kjstillabower/weathernow/internal/cache"
	"github.com/kjstillabower/weathernow/internal/client"
	"github.com/kjstillabower/weathernow/internal/models"
	"github.com/kjstillabower/weathernow/internal/observability"
	"github.com/kjstillabower/weathernow/internal/validation"
)

var (
	// ErrInvalidLocation is returned when the query fails validation. No provider is
	// called and nothing is published.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrLocationNotFound is returned when the geocoder has no match for the query.
	ErrLocationNotFound = errors.New("location not found")

	// ErrBatchFailed wraps every failure of the parallel provider calls.
	ErrBatchFailed = errors.New("batch fetch failed")

	// ErrSuperseded is returned when a newer cycle committed before this one.
	ErrSuperseded = cache.ErrSuperseded
)

// Cycle outcomes, used as the fetchCyclesTotal label.
const (
	outcomeSuccess     = "success"
	outcomeInvalid     = "invalid"
	outcomeNotFound    = "location_not_found"
	outcomeBatchFailed = "batch_failed"
	outcomeSuperseded  = "superseded"
)

// Clients bundles the provider clients a cycle calls.
type Clients struct {
	Geocoder   client.Geocoder
	Forecast   client.ForecastFetcher
	Daily      client.DailyFetcher
	Country    client.CountryFetcher
	Population client.PopulationFetcher
}

// Options bounds the accepted query length, in runes. Zero disables a bound.
type Options struct {
	MinLocationLen int
	MaxLocationLen int
}

// Orchestrator owns the fetch cycle. It is safe for concurrent use; when cycles
// overlap, the one that started last is the one that stays committed.
type Orchestrator struct {
	clients   Clients
	store     *cache.Store
	snapshots *bus.Topic[models.Snapshot]
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
	cycles    *cycleTracker

	// publishMu makes commit-then-publish atomic so panels see snapshots in
	// commit order.
	publishMu sync.Mutex
}

// NewOrchestrator creates an orchestrator. snapshots may be nil, in which case
// committed snapshots are not published.
func NewOrchestrator(clients Clients, store *cache.Store, snapshots *bus.Topic[models.Snapshot], opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		clients:   clients,
		store:     store,
		snapshots: snapshots,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		cycles:    newCycleTracker(),
	}
}

// FetchAll runs one fetch cycle for query.
//
// On success the complete snapshot is committed, published and returned. When the
// location is unknown or any parallel call fails, an error-only snapshot is committed
// and published instead, and the error is returned alongside it. A cycle overtaken by
// a newer one publishes nothing and returns ErrSuperseded with the snapshot that is
// current.
func (o *Orchestrator) FetchAll(ctx context.Context, query string) (models.Snapshot, error) {
	logger := observability.LoggerFrom(ctx, o.logger)

	q, err := validation.NormalizeLocation(query, o.opts.MinLocationLen, o.opts.MaxLocationLen)
	if err != nil {
		observability.FetchCyclesTotal.WithLabelValues(outcomeInvalid).Inc()
		logger.Info("lookup rejected", zap.String("query", query), zap.Error(err))
		return models.Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}

	start := time.Now()
	defer func() { observability.FetchCycleDuration.Observe(time.Since(start).Seconds()) }()

	seq := o.store.Begin()
	logger = logger.With(zap.String("query", q), zap.Uint64("seq", seq))
	if n := o.cycles.begin(); n > 1 {
		observability.OverlappingCyclesTotal.Inc()
		observability.CycleOverlapConcurrency.Observe(float64(n))
		logger.Debug("overlapping fetch cycles", zap.Int("in_flight", n))
	}
	defer o.cycles.end()

	coords, err := o.clients.Geocoder.Geocode(ctx, q)
	if err != nil || coords == nil {
		cause := fmt.Errorf("%w: %s", ErrLocationNotFound, q)
		if err != nil {
			cause = fmt.Errorf("%w: %s: %w", ErrLocationNotFound, q, err)
		}
		logger.Info("location not found", zap.String("provider", client.ProviderGeocode), zap.Error(err))
		return o.fail(logger, seq, q, cause, outcomeNotFound)
	}

	snap, err := o.fetchDependent(ctx, logger, *coords)
	if err != nil {
		return o.fail(logger, seq, q, fmt.Errorf("%w: %w", ErrBatchFailed, err), outcomeBatchFailed)
	}
	snap.Seq = seq
	snap.Query = q
	snap.UpdatedAt = o.now()

	current, err := o.commit(logger, snap)
	if err != nil {
		return current, err
	}
	observability.FetchCyclesTotal.WithLabelValues(outcomeSuccess).Inc()
	logger.Info("fetch cycle complete",
		zap.String("location", coords.Name),
		zap.Duration("duration", time.Since(start)))
	return current, nil
}

// fetchDependent runs the four coordinate-keyed calls concurrently and waits for all of
// them. Every failure is collected; none cancels the others.
func (o *Orchestrator) fetchDependent(ctx context.Context, logger *zap.Logger, coords models.Coordinates) (models.Snapshot, error) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error

		weather    *models.Weather
		daily      *models.DailyForecast
		country    *models.CountryInfo
		population models.Population
	)
	record := func(provider string, err error) {
		logger.Warn("provider call failed", zap.String("provider", provider), zap.Error(err))
		mu.Lock()
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", provider, err))
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		w, err := o.clients.Forecast.CurrentAndHourly(ctx, coords.Lat, coords.Lon)
		if err != nil {
			record(client.ProviderForecast, err)
			return
		}
		weather = w
	}()
	go func() {
		defer wg.Done()
		d, err := o.clients.Daily.Daily(ctx, coords.Lat, coords.Lon)
		if err != nil {
			record(client.ProviderDaily, err)
			return
		}
		daily = d
	}()
	go func() {
		defer wg.Done()
		c, err := o.clients.Country.Country(ctx, coords.Country)
		if err != nil {
			record(client.ProviderCountry, err)
			return
		}
		country = c
	}()
	go func() {
		defer wg.Done()
		p, err := o.clients.Population.Population(ctx, coords.Country)
		if err != nil {
			record(client.ProviderPopulation, err)
			return
		}
		population = p
	}()
	wg.Wait()

	if errs != nil {
		return models.Snapshot{}, errs
	}
	return models.Snapshot{
		Coordinates: &coords,
		Weather:     weather,
		Daily:       daily,
		Country:     country,
		Population:  &population,
	}, nil
}

// fail commits and publishes the error-only snapshot for a failed cycle.
func (o *Orchestrator) fail(logger *zap.Logger, seq uint64, query string, cause error, outcome string) (models.Snapshot, error) {
	current, err := o.commit(logger, models.ErrorSnapshot(seq, query, cause, o.now()))
	if err != nil {
		logger.Debug("failed cycle superseded", zap.NamedError("cause", cause))
		return current, err
	}
	observability.FetchCyclesTotal.WithLabelValues(outcome).Inc()
	logger.Warn("fetch cycle failed", zap.String("outcome", outcome), zap.Error(cause))
	return current, cause
}

func (o *Orchestrator) commit(logger *zap.Logger, snap models.Snapshot) (models.Snapshot, error) {
	o.publishMu.Lock()
	defer o.publishMu.Unlock()

	current, ok := o.store.Commit(snap)
	if !ok {
		observability.SupersededCommitsTotal.Inc()
		observability.FetchCyclesTotal.WithLabelValues(outcomeSuperseded).Inc()
		logger.Info("cycle superseded", zap.Uint64("current_seq", current.Seq))
		return current, fmt.Errorf("cycle %d: %w by cycle %d", snap.Seq, ErrSuperseded, current.Seq)
	}
	if o.snapshots != nil {
		if err := o.snapshots.Publish(current); err != nil {
			logger.Warn("snapshot listeners failed", zap.Error(err))
		}
	}
	return current, nil
}
