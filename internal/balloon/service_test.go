package balloon

import (
	"context"
	"errors"
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

// --- fake snapshot source ---

type fakeSource struct {
	mu        sync.Mutex
	snapshots map[int]Snapshot
	panicHour int
	calls     atomic.Int64
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchSnapshot(ctx context.Context, hour int) (Snapshot, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.panicHour >= 0 && hour == f.panicHour {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[hour]
	if !ok {
		return nil, errors.New("upstream down")
	}
	return snap, nil
}

func newFakeSource(snapshots map[int]Snapshot) *fakeSource {
	return &fakeSource{snapshots: snapshots, panicHour: -1}
}

func newTestService(src SnapshotSource, clock clockwork.Clock) *Service {
	return NewService(src, store.NewTTL[History](10*time.Minute, clock), Options{
		Clock:   clock,
		Logger:  observability.DiscardLogger(),
		Metrics: observability.NewMetricsForTesting(),
	})
}

func TestService_AllFetchesFailReturnsErrNoData(t *testing.T) {
	src := newFakeSource(nil)
	svc := newTestService(src, clockwork.NewFakeClock())

	_, err := svc.History(context.Background())
	require.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, int64(DefaultHours), src.calls.Load(), "every offset is attempted")
}

func TestService_EmptySnapshotsReturnErrNoData(t *testing.T) {
	src := newFakeSource(map[int]Snapshot{0: {}, 5: {}})
	svc := newTestService(src, clockwork.NewFakeClock())

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestService_PartialFailureStillMerges(t *testing.T) {
	now := time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC)
	src := newFakeSource(map[int]Snapshot{
		0: {{Lat: 10.0, Lon: -80.0, Alt: 5000.0}},
		1: {{Lat: 10.0, Lon: -80.0, Alt: 5000.0}},
	})
	svc := newTestService(src, clockwork.NewFakeClockAt(now))

	history, err := svc.History(context.Background())
	require.NoError(t, err)

	require.Len(t, history, 1)
	traj := history["0"].Trajectory
	require.Len(t, traj, 2)
	assert.Equal(t, "2026-10-17T05:00:00.000000Z", traj[0].Timestamp)
	assert.Equal(t, "2026-10-17T06:00:00.000000Z", traj[1].Timestamp)
}

func TestService_SequentialCallsHitCache(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := newFakeSource(map[int]Snapshot{0: {{Lat: 1, Lon: 2, Alt: 3}}})
	svc := newTestService(src, clock)

	first, err := svc.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultHours), src.calls.Load())

	clock.Advance(9 * time.Minute)
	second, err := svc.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultHours), src.calls.Load(), "second call within ttl must not refetch")
	assert.Equal(t, first, second)

	clock.Advance(2 * time.Minute)
	_, err = svc.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2*DefaultHours), src.calls.Load(), "expired cache forces recomputation")
}

func TestService_FailureIsNotCached(t *testing.T) {
	src := newFakeSource(nil)
	svc := newTestService(src, clockwork.NewFakeClock())

	_, err := svc.History(context.Background())
	require.ErrorIs(t, err, ErrNoData)

	src.mu.Lock()
	src.snapshots = map[int]Snapshot{3: {{Lat: 1}}}
	src.mu.Unlock()

	history, err := svc.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestService_PanicInFanOutIsInternalError(t *testing.T) {
	src := newFakeSource(map[int]Snapshot{0: {{Lat: 1}}})
	src.panicHour = 5
	svc := newTestService(src, clockwork.NewFakeClock())

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
	assert.Contains(t, err.Error(), "snapshot 05")
}

func TestService_CustomHours(t *testing.T) {
	src := newFakeSource(map[int]Snapshot{0: {{Lat: 1}}})
	svc := NewService(src, store.NewTTL[History](time.Minute, nil), Options{
		Hours:   6,
		Logger:  observability.DiscardLogger(),
		Metrics: observability.NewMetricsForTesting(),
	})

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), src.calls.Load())
}

func TestService_RefreshHonorsCallerDeadline(t *testing.T) {
	src := newFakeSource(map[int]Snapshot{0: {{Lat: 1}}})
	svc := newTestService(src, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Refresh(ctx)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, int64(DefaultHours), src.calls.Load())
}

func TestService_DetachedContextSurvivesCancel(t *testing.T) {
	src := newFakeSource(map[int]Snapshot{0: {{Lat: 1}}})
	svc := newTestService(src, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	history, err := svc.Refresh(context.WithoutCancel(ctx))
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
