package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/i474232898/hurricane-hunter/internal/balloon"
	"github.com/i474232898/hurricane-hunter/internal/observability"
)

// DefaultWindBorneURL hosts the hourly snapshots as 00.json .. 23.json.
const DefaultWindBorneURL = "https://a.windbornesystems.com/treasure/"

var _ balloon.SnapshotSource = (*WindBorne)(nil)

// WindBorne implements balloon.SnapshotSource over the WindBorne treasure feed.
type WindBorne struct {
	name    string
	baseURL string
	fetcher *Fetcher
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewWindBorne(fetcher *Fetcher, baseURL string, logger *slog.Logger, metrics *observability.Metrics) *WindBorne {
	if baseURL == "" {
		baseURL = DefaultWindBorneURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &WindBorne{
		name:    "windborne",
		baseURL: baseURL,
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
	}
}

func (w *WindBorne) Name() string {
	return w.name
}

// URL returns the snapshot location for an hour offset.
func (w *WindBorne) URL(hour int) string {
	return fmt.Sprintf("%s%02d.json", w.baseURL, hour)
}

func (w *WindBorne) FetchSnapshot(ctx context.Context, hour int) (balloon.Snapshot, error) {
	u := w.URL(hour)

	raw, err := w.fetcher.FetchJSON(ctx, u)
	if err != nil {
		return nil, err
	}

	snap, skipped, err := balloon.ParseSnapshot(raw)
	if err != nil {
		w.logger.Warn("invalid data structure", "url", u, "error", err)
		return nil, &FetchError{Kind: KindShape, URL: u, Err: err}
	}

	for _, e := range skipped {
		w.logger.Warn("invalid data point", "url", u, "error", e)
	}
	w.metrics.InvalidElements.Add(float64(len(skipped)))

	return snap, nil
}
