package balloon

import (
	"strconv"
	"time"
)

// TimestampLayout renders UTC instants as ISO-8601 with a fixed-width
// fractional part and a literal Z, so that lexicographic order is
// chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Coordinate is one balloon position. Only numeric validity is checked;
// out-of-range latitudes and longitudes are kept as reported.
type Coordinate struct {
	Lat float64
	Lon float64
	Alt float64
}

// Snapshot is every balloon's position at one hour offset, in upstream order.
// A nil Snapshot means the offset could not be fetched.
type Snapshot []Coordinate

// TrajectoryPoint is a single timestamped position in a balloon's history.
type TrajectoryPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Alt       float64 `json:"alt"`
	Timestamp string  `json:"timestamp"`
}

// Balloon is a tracked entity with its trajectory sorted oldest first.
type Balloon struct {
	ID         string            `json:"id"`
	Trajectory []TrajectoryPoint `json:"trajectory"`
}

// History maps balloon id to balloon.
type History map[string]Balloon

// IdentityFunc decides which balloon a coordinate belongs to. The upstream
// feed carries no ids, so the only scheme in use is PositionalID.
type IdentityFunc func(index int, c Coordinate) string

// PositionalID treats index i of every snapshot as the same balloon.
func PositionalID(index int, _ Coordinate) string {
	return strconv.Itoa(index)
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
