package balloon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidShape is returned when a payload is not a JSON array.
	ErrInvalidShape = errors.New("snapshot payload is not an array")

	// ErrInvalidElement marks a single snapshot entry that was dropped.
	ErrInvalidElement = errors.New("invalid snapshot element")
)

// ElementError describes one dropped snapshot entry.
type ElementError struct {
	Index int
	Raw   string
	Err   error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %d (%s): %v", e.Index, e.Raw, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

// ParseSnapshot validates a raw snapshot payload. The payload must be an
// array; entries that are not 3-element numeric arrays are dropped and
// reported in skipped while the remaining entries keep their order.
func ParseSnapshot(raw []byte) (snap Snapshot, skipped []error, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil, ErrInvalidShape
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	snap = make(Snapshot, 0, len(elems))
	for i, elem := range elems {
		c, err := ParseCoordinate(elem)
		if err != nil {
			skipped = append(skipped, &ElementError{Index: i, Raw: string(elem), Err: err})
			continue
		}
		snap = append(snap, c)
	}
	return snap, skipped, nil
}

// ParseCoordinate coerces one [lat, lon, alt] entry. Each value may be a
// JSON number, a numeric string or a boolean (1 or 0) and must be finite.
func ParseCoordinate(raw json.RawMessage) (Coordinate, error) {
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return Coordinate{}, fmt.Errorf("%w: not an array", ErrInvalidElement)
	}
	if len(values) != 3 {
		return Coordinate{}, fmt.Errorf("%w: want 3 values, got %d", ErrInvalidElement, len(values))
	}

	var parsed [3]float64
	for i, v := range values {
		f, err := toFloat(v)
		if err != nil {
			return Coordinate{}, fmt.Errorf("%w: value %d: %v", ErrInvalidElement, i, err)
		}
		parsed[i] = f
	}

	return Coordinate{Lat: parsed[0], Lon: parsed[1], Alt: parsed[2]}, nil
}

func toFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case bool:
		if x {
			f = 1
		}
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", x)
		}
		f = n
	default:
		return 0, fmt.Errorf("not numeric: %v", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not finite")
	}
	return f, nil
}
