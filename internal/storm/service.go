package storm

import (
	"context"
	"log/slog"

	"github.com/i474232898/hurricane-hunter/internal/observability"
	"github.com/i474232898/hurricane-hunter/internal/store"
)

// Service serves collected alerts from a TTL cache.
type Service struct {
	collector *Collector
	cache     *store.TTL[[]Alert]
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService creates a new Service.
func NewService(collector *Collector, cache *store.TTL[[]Alert], logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Service{
		collector: collector,
		cache:     cache,
		logger:    logger,
		metrics:   metrics,
	}
}

// Alerts returns the cached alerts, collecting them again once the cache expires.
func (s *Service) Alerts(ctx context.Context) []Alert {
	if alerts, ok := s.cache.Get(); ok {
		s.metrics.CacheLookups.WithLabelValues("storms", "hit").Inc()
		return alerts
	}
	s.metrics.CacheLookups.WithLabelValues("storms", "miss").Inc()
	return s.Refresh(ctx)
}

// Refresh collects alerts from every region and caches the result, even when empty.
func (s *Service) Refresh(ctx context.Context) []Alert {
	alerts := s.collector.Collect(ctx)

	s.cache.Put(alerts)
	s.metrics.AlertsCollected.Set(float64(len(alerts)))
	s.logger.Info("storm alerts collected", "alerts", len(alerts), "regions", len(s.collector.regions))

	return alerts
}
