package storm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/hurricane-hunter/internal/observability"
	"github.com/i474232898/hurricane-hunter/internal/store"
)

// --- fake alert source ---

type fakeAlertSource struct {
	mu       sync.Mutex
	features map[string][]json.RawMessage
	failing  map[string]bool
	calls    atomic.Int64
	seen     []string
}

func (f *fakeAlertSource) Name() string { return "fake" }

func (f *fakeAlertSource) FetchRegion(ctx context.Context, region string) ([]json.RawMessage, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, region)
	if f.failing[region] {
		return nil, errors.New("region down")
	}
	return f.features[region], nil
}

func featureJSON(id, event string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"id": %q,
		"type": "Feature",
		"geometry": {"type": "Polygon", "coordinates": [[[-80.1, 25.7], [-80.2, 25.8], [-80.1, 25.7]]]},
		"properties": {
			"headline": "%s issued",
			"description": "details",
			"severity": "Severe",
			"certainty": "Likely",
			"urgency": "Expected",
			"event": %q,
			"areaDesc": "Miami-Dade"
		}
	}`, id, event, event))
}

func newTestCollector(src AlertSource, regions ...string) *Collector {
	return NewCollector(src, regions, nil, observability.DiscardLogger())
}

func TestCollector_KeywordFilter(t *testing.T) {
	src := &fakeAlertSource{features: map[string][]json.RawMessage{
		"FL": {
			featureJSON("urn:1", "Tropical Storm Warning"),
			featureJSON("urn:2", "Winter Weather Advisory"),
		},
	}}

	alerts := newTestCollector(src, "FL").Collect(context.Background())

	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, "urn:1", a.ID)
	assert.Equal(t, "Feature", a.Type)
	assert.Equal(t, "Tropical Storm Warning", a.Properties.Event)
	assert.Equal(t, "Tropical Storm Warning issued", a.Properties.Headline)
	assert.Equal(t, "Miami-Dade", a.Properties.AreaDesc)
	require.NotNil(t, a.Geometry)
	assert.Equal(t, "Polygon", a.Geometry.Type)
}

func TestCollector_CaseInsensitiveMatch(t *testing.T) {
	c := newTestCollector(&fakeAlertSource{})
	assert.True(t, c.Matches("HURRICANE WARNING"))
	assert.True(t, c.Matches("Flash Flood Watch"))
	assert.True(t, c.Matches("Tornado Watch"))
	assert.False(t, c.Matches("Heat Advisory"))
}

func TestCollector_FailingRegionContributesNothing(t *testing.T) {
	src := &fakeAlertSource{
		features: map[string][]json.RawMessage{
			"FL": {featureJSON("urn:fl", "Hurricane Warning")},
			"TX": {featureJSON("urn:tx", "Tornado Warning")},
		},
		failing: map[string]bool{"LA": true},
	}

	alerts := newTestCollector(src, "FL", "LA", "TX").Collect(context.Background())

	require.Len(t, alerts, 2)
	assert.Equal(t, "urn:fl", alerts[0].ID, "output follows region order")
	assert.Equal(t, "urn:tx", alerts[1].ID)
	assert.Equal(t, int64(3), src.calls.Load())
}

func TestCollector_BadFeatureSkipped(t *testing.T) {
	src := &fakeAlertSource{features: map[string][]json.RawMessage{
		"FL": {
			json.RawMessage(`"not an object"`),
			json.RawMessage(`{"id": "urn:noevent", "properties": {}}`),
			featureJSON("urn:ok", "Storm Surge Warning"),
		},
	}}

	alerts := newTestCollector(src, "FL").Collect(context.Background())

	require.Len(t, alerts, 1)
	assert.Equal(t, "urn:ok", alerts[0].ID)
}

func TestCollector_NoDeduplicationAcrossRegions(t *testing.T) {
	shared := featureJSON("urn:shared", "Hurricane Watch")
	src := &fakeAlertSource{features: map[string][]json.RawMessage{
		"FL": {shared},
		"GA": {shared},
	}}

	alerts := newTestCollector(src, "FL", "GA").Collect(context.Background())

	require.Len(t, alerts, 2)
	assert.Equal(t, alerts[0], alerts[1])
}

func TestCollector_TotalFailureIsEmptyNotNil(t *testing.T) {
	src := &fakeAlertSource{failing: map[string]bool{"FL": true, "TX": true}}

	alerts := newTestCollector(src, "FL", "TX").Collect(context.Background())

	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)

	body, err := json.Marshal(alerts)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestCollector_DefaultsAreNineEach(t *testing.T) {
	src := &fakeAlertSource{}
	c := NewCollector(src, nil, nil, nil)

	c.Collect(context.Background())

	assert.Equal(t, int64(9), src.calls.Load())
	assert.ElementsMatch(t, DefaultRegions, src.seen)
	assert.Len(t, c.keywords, 9)
}

func TestService_CachesWithinWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeAlertSource{features: map[string][]json.RawMessage{
		"FL": {featureJSON("urn:1", "Hurricane Warning")},
	}}
	svc := NewService(
		newTestCollector(src, "FL"),
		store.NewTTL[[]Alert](5*time.Minute, clock),
		observability.DiscardLogger(),
		observability.NewMetricsForTesting(),
	)

	first := svc.Alerts(context.Background())
	clock.Advance(4 * time.Minute)
	second := svc.Alerts(context.Background())

	assert.Equal(t, int64(1), src.calls.Load())
	assert.Equal(t, first, second)

	clock.Advance(time.Minute)
	svc.Alerts(context.Background())
	assert.Equal(t, int64(2), src.calls.Load())
}

func TestService_EmptyResultIsCached(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeAlertSource{failing: map[string]bool{"FL": true}}
	svc := NewService(
		newTestCollector(src, "FL"),
		store.NewTTL[[]Alert](5*time.Minute, clock),
		observability.DiscardLogger(),
		observability.NewMetricsForTesting(),
	)

	assert.Empty(t, svc.Alerts(context.Background()))
	assert.Empty(t, svc.Alerts(context.Background()))
	assert.Equal(t, int64(1), src.calls.Load())
}

func TestService_RefreshHonorsCallerDeadline(t *testing.T) {
	src := &fakeAlertSource{features: map[string][]json.RawMessage{
		"FL": {featureJSON("urn:1", "Hurricane Warning")},
	}}
	svc := NewService(
		newTestCollector(src, "FL"),
		store.NewTTL[[]Alert](5*time.Minute, clockwork.NewFakeClock()),
		observability.DiscardLogger(),
		observability.NewMetricsForTesting(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	assert.Empty(t, svc.Refresh(ctx))
	assert.Equal(t, int64(1), src.calls.Load())
}
