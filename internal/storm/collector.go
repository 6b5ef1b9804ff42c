package storm

import (
	"context"
	"log/slog"
	"sync"

	"github.com/i474232898/hurricane-hunter/internal/common"
)

// Collector queries every region concurrently and keeps the alerts whose
// event matches a keyword.
type Collector struct {
	source   AlertSource
	regions  []string
	keywords []string
	logger   *slog.Logger
}

// NewCollector creates a Collector. Empty regions or keywords fall back to
// DefaultRegions and DefaultKeywords.
func NewCollector(source AlertSource, regions, keywords []string, logger *slog.Logger) *Collector {
	if len(regions) == 0 {
		regions = DefaultRegions
	}
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		source:   source,
		regions:  regions,
		keywords: keywords,
		logger:   logger,
	}
}

// Matches reports whether an event name contains any of the collector's keywords.
func (c *Collector) Matches(event string) bool {
	return common.ContainsAnyFold(event, c.keywords...)
}

// Collect returns the matching alerts of all regions, in region order.
// A failing region or feature is logged and skipped; the result is never nil.
// Alerts present in overlapping regions are returned once per region.
func (c *Collector) Collect(ctx context.Context) []Alert {
	perRegion := make([][]Alert, len(c.regions))

	var wg sync.WaitGroup
	for i, region := range c.regions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			perRegion[i] = c.collectRegion(ctx, region)
		}()
	}
	wg.Wait()

	alerts := make([]Alert, 0)
	for _, regionAlerts := range perRegion {
		alerts = append(alerts, regionAlerts...)
	}
	return alerts
}

func (c *Collector) collectRegion(ctx context.Context, region string) []Alert {
	// Sources log their own failures; a failed region contributes nothing.
	features, err := c.source.FetchRegion(ctx, region)
	if err != nil {
		return nil
	}

	var alerts []Alert
	for i, raw := range features {
		alert, err := ParseFeature(raw)
		if err != nil {
			c.logger.Warn("alert feature skipped", "region", region, "index", i, "error", err)
			continue
		}
		if !c.Matches(alert.Properties.Event) {
			continue
		}
		alerts = append(alerts, alert)
	}

	c.logger.Debug("alert region collected", "region", region, "features", len(features), "accepted", len(alerts))
	return alerts
}
