// Package model defines the data model shared by the suggestion pipeline:
// the immutable CompleteSuggestion records served by falcons, the per-request
// Completion working records, and the request/response envelopes.
package model

import "encoding/json"

// SuggestionID is an opaque, globally unique identifier for one
// CompleteSuggestion. Composite ids for attribute children are built and
// parsed by BuildCompositeID / ParseCompositeID.
type SuggestionID string

// SrcType categorizes the entity behind a suggestion.
type SrcType int

// Source types, ordered by ranking tie-break preference (ascending).
const (
	SrcHotel SrcType = iota
	SrcCity
	SrcNeighborhood
	SrcAttraction
	SrcAmenity
	SrcFilter
	SrcSort
	SrcUnknown
)

var srcTypeNames = map[SrcType]string{
	SrcHotel:        "hotel",
	SrcCity:         "city",
	SrcNeighborhood: "neighborhood",
	SrcAttraction:   "attraction",
	SrcAmenity:      "amenity",
	SrcFilter:       "filter",
	SrcSort:         "sort",
	SrcUnknown:      "unknown",
}

func (t SrcType) String() string {
	if name, ok := srcTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseSrcType maps a type name back to its SrcType. Unrecognized names map
// to SrcUnknown.
func ParseSrcType(name string) SrcType {
	for t, n := range srcTypeNames {
		if n == name {
			return t
		}
	}
	return SrcUnknown
}

// MarshalJSON emits the type name rather than the numeric value.
func (t SrcType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts a type name.
func (t *SrcType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*t = ParseSrcType(name)
	return nil
}

// CompleteSuggestion is the immutable backing record for one suggestion.
// Records are loaded once at init and shared across requests; callers must
// not mutate them.
type CompleteSuggestion struct {
	SrcType     SrcType  `json:"src_type"`
	SrcID       string   `json:"src_id"`
	Country     string   `json:"country"`
	BaseScore   float64  `json:"base_score"`
	Latitude    float64  `json:"lat"`
	Longitude   float64  `json:"lon"`
	Normalized  string   `json:"normalized"`
	Display     string   `json:"display"`
	Annotations []string `json:"annotations,omitempty"`
	Freq        float64  `json:"freq"`
}

// IndexItem is a pointer from a retrieval index into a falcon. IndexScore
// zero means "unset": the completion's score is later filled from the
// record's BaseScore.
type IndexItem struct {
	SuggestionID SuggestionID `json:"suggestion_id"`
	IndexScore   float64      `json:"index_score,omitempty"`
}
