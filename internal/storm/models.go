package storm

import "encoding/json"

// Alert is one accepted upstream alert feature.
type Alert struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
	Geometry   *Geometry  `json:"geometry,omitempty"`
}

// Properties is the subset of NWS alert properties that clients consume.
type Properties struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty"`
	Certainty   string `json:"certainty,omitempty"`
	Urgency     string `json:"urgency,omitempty"`
	Event       string `json:"event"`
	AreaDesc    string `json:"area_desc,omitempty"`
}

// Geometry mirrors a GeoJSON geometry. Coordinates nest differently per
// geometry type, so they are passed through untouched.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// DefaultRegions are the NWS area codes queried for alerts.
var DefaultRegions = []string{"FL", "TX", "LA", "MS", "AL", "GA", "SC", "NC", "PR"}

// DefaultKeywords are matched case-insensitively against the alert event.
var DefaultKeywords = []string{
	"hurricane",
	"tropical storm",
	"tropical depression",
	"storm surge",
	"tornado",
	"severe thunderstorm",
	"flash flood",
	"typhoon",
	"extreme wind",
}
