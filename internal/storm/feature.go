package storm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidFeature marks an upstream feature that could not be turned into an Alert.
var ErrInvalidFeature = errors.New("invalid alert feature")

var validate = validator.New()

// feature is the upstream GeoJSON feature, trimmed to the consumed fields.
type feature struct {
	ID         string            `json:"id" validate:"required"`
	Type       string            `json:"type"`
	Properties featureProperties `json:"properties"`
	Geometry   *featureGeometry  `json:"geometry"`
}

type featureProperties struct {
	ID          string `json:"id"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Certainty   string `json:"certainty"`
	Urgency     string `json:"urgency"`
	Event       string `json:"event" validate:"required"`
	AreaDesc    string `json:"areaDesc"`
}

type featureGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseFeature decodes one upstream feature. The feature must carry an id
// (or a properties.id) and an event name. Geometry is kept only when it has
// both a type and non-empty coordinates.
func ParseFeature(raw json.RawMessage) (Alert, error) {
	var f feature
	if err := json.Unmarshal(raw, &f); err != nil {
		return Alert{}, fmt.Errorf("%w: %v", ErrInvalidFeature, err)
	}
	if f.ID == "" {
		f.ID = f.Properties.ID
	}
	if err := validate.Struct(f); err != nil {
		return Alert{}, fmt.Errorf("%w: %v", ErrInvalidFeature, err)
	}

	alert := Alert{
		ID:   f.ID,
		Type: f.Type,
		Properties: Properties{
			Headline:    f.Properties.Headline,
			Description: f.Properties.Description,
			Severity:    f.Properties.Severity,
			Certainty:   f.Properties.Certainty,
			Urgency:     f.Properties.Urgency,
			Event:       f.Properties.Event,
			AreaDesc:    f.Properties.AreaDesc,
		},
	}
	if g := f.Geometry; g != nil && g.Type != "" && hasCoordinates(g.Coordinates) {
		alert.Geometry = &Geometry{Type: g.Type, Coordinates: g.Coordinates}
	}
	return alert, nil
}

func hasCoordinates(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "[]":
		return false
	}
	return true
}
