package storm

import (
	"context"
	"encoding/json"
)

// AlertSource abstracts the upstream per-region alert feed.
type AlertSource interface {
	Name() string
	// FetchRegion returns the raw features of the region's active alerts.
	// Implementations log their own failures.
	FetchRegion(ctx context.Context, region string) ([]json.RawMessage, error)
}
