package balloon

import "context"

// SnapshotSource abstracts the upstream feed of hourly balloon snapshots.
type SnapshotSource interface {
	Name() string
	// FetchSnapshot returns the validated snapshot recorded hour hours ago.
	// Implementations log their own failures.
	FetchSnapshot(ctx context.Context, hour int) (Snapshot, error)
}
