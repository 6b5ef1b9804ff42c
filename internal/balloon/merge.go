package balloon

import (
	"sort"
	"time"
)

// Merge reassembles per-balloon trajectories from hourly snapshots.
// snapshots[h] holds the positions h hours before now; nil entries are skipped.
// Each trajectory is stably sorted by timestamp, oldest first.
func Merge(now time.Time, snapshots []Snapshot, id IdentityFunc) History {
	if id == nil {
		id = PositionalID
	}

	history := make(History)
	for hour, snap := range snapshots {
		if snap == nil {
			continue
		}

		ts := FormatTimestamp(now.Add(-time.Duration(hour) * time.Hour))
		for i, c := range snap {
			key := id(i, c)
			b, ok := history[key]
			if !ok {
				b = Balloon{ID: key}
			}
			b.Trajectory = append(b.Trajectory, TrajectoryPoint{
				Lat:       c.Lat,
				Lon:       c.Lon,
				Alt:       c.Alt,
				Timestamp: ts,
			})
			history[key] = b
		}
	}

	for _, b := range history {
		traj := b.Trajectory
		sort.SliceStable(traj, func(i, j int) bool {
			return traj[i].Timestamp < traj[j].Timestamp
		})
	}

	return history
}
