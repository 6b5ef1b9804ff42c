package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/i474232898/hurricane-hunter/internal/storm"
)

// DefaultNWSURL is the active-alerts endpoint of api.weather.gov.
const DefaultNWSURL = "https://api.weather.gov/alerts/active"

// DefaultNWSUserAgent identifies this service; api.weather.gov rejects
// requests without a User-Agent.
const DefaultNWSUserAgent = "(hurricane-hunter, ops@hurricane-hunter.dev)"

// NWSHeaders returns the request headers api.weather.gov expects.
func NWSHeaders(userAgent string) map[string]string {
	if userAgent == "" {
		userAgent = DefaultNWSUserAgent
	}
	return map[string]string{
		"User-Agent": userAgent,
		"Accept":     "application/geo+json",
	}
}

var _ storm.AlertSource = (*NWS)(nil)

// NWS implements storm.AlertSource over the National Weather Service alerts API.
type NWS struct {
	name    string
	baseURL string
	fetcher *Fetcher
}

// NewNWS expects a fetcher built with NWSHeaders.
func NewNWS(fetcher *Fetcher, baseURL string) *NWS {
	if baseURL == "" {
		baseURL = DefaultNWSURL
	}
	return &NWS{
		name:    "nws",
		baseURL: baseURL,
		fetcher: fetcher,
	}
}

func (n *NWS) Name() string {
	return n.name
}

// URL returns the active-alerts query for a region code.
func (n *NWS) URL(region string) string {
	values := url.Values{}
	values.Set("area", region)
	return n.baseURL + "?" + values.Encode()
}

func (n *NWS) FetchRegion(ctx context.Context, region string) ([]json.RawMessage, error) {
	u := n.URL(region)

	raw, err := n.fetcher.FetchJSON(ctx, u)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		n.fetcher.logger.Warn("invalid data structure", "source", n.name, "url", u, "error", err)
		return nil, &FetchError{Kind: KindShape, URL: u, Err: errors.New("response is not a feature collection")}
	}
	return payload.Features, nil
}
