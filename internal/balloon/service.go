package balloon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/hurricane-hunter/internal/observability"
	"github.com/i474232898/hurricane-hunter/internal/store"
)

// DefaultHours is the lookback window of the upstream feed.
const DefaultHours = 24

// ErrNoData is returned when no snapshot produced a single balloon.
var ErrNoData = errors.New("no balloon data available")

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	Hours    int
	Clock    clockwork.Clock
	Identity IdentityFunc
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Service fans out snapshot fetches, merges them into trajectories and
// caches the result.
type Service struct {
	source   SnapshotSource
	cache    *store.TTL[History]
	hours    int
	clock    clockwork.Clock
	identity IdentityFunc
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService creates a new Service.
func NewService(source SnapshotSource, cache *store.TTL[History], opts Options) *Service {
	s := &Service{
		source:   source,
		cache:    cache,
		hours:    opts.Hours,
		clock:    opts.Clock,
		identity: opts.Identity,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if s.hours <= 0 {
		s.hours = DefaultHours
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.identity == nil {
		s.identity = PositionalID
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetricsForTesting()
	}
	return s
}

// History returns the cached trajectories, rebuilding them when the cache
// is empty or expired. Concurrent misses may each rebuild.
func (s *Service) History(ctx context.Context) (History, error) {
	if h, ok := s.cache.Get(); ok {
		s.metrics.CacheLookups.WithLabelValues("history", "hit").Inc()
		return h, nil
	}
	s.metrics.CacheLookups.WithLabelValues("history", "miss").Inc()
	return s.Refresh(ctx)
}

// Refresh fetches every hour offset concurrently, merges whatever succeeded
// and stores the result. It fails with ErrNoData when nothing usable came back.
// Cancelling ctx aborts fetches still in flight.
func (s *Service) Refresh(ctx context.Context) (History, error) {
	now := s.clock.Now().UTC()

	snapshots := make([]Snapshot, s.hours)

	var g errgroup.Group
	for hour := 0; hour < s.hours; hour++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("snapshot %02d: panic: %v", hour, r)
				}
			}()

			// Sources log their own failures; a failed hour is just absent.
			if snap, fetchErr := s.source.FetchSnapshot(ctx, hour); fetchErr == nil {
				snapshots[hour] = snap
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.metrics.AggregateFailures.WithLabelValues("history", "internal").Inc()
		s.logger.Error("balloon fan-out failed", "error", err)
		return nil, fmt.Errorf("fan-out failed: %w", err)
	}

	merged := 0
	for _, snap := range snapshots {
		if snap != nil {
			merged++
		}
	}

	history := Merge(now, snapshots, s.identity)
	if len(history) == 0 {
		s.metrics.AggregateFailures.WithLabelValues("history", "no_data").Inc()
		s.logger.Warn("no valid balloon data was fetched from any endpoint", "hours", s.hours)
		return nil, ErrNoData
	}

	s.cache.Put(history)
	s.metrics.BalloonsTracked.Set(float64(len(history)))
	s.metrics.SnapshotsMerged.Set(float64(merged))
	s.logger.Info("balloon history rebuilt", "balloons", len(history), "snapshots", merged, "hours", s.hours)

	return history, nil
}
