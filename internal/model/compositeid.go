package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Composite ids join a parent suggestion id with a quoted child id and the
// qualifier entity ids a downstream ranker needs to interpret the child.
// BuildCompositeID and ParseCompositeID are exact inverses.
const (
	// MultiEntitySep separates the segments of a composite id.
	MultiEntitySep = "!!"

	// OpBegin and OpEnd bracket the quoted child id.
	OpBegin = "op("
	OpEnd   = ")op"

	// Ranker filter entity ids attached to attribute children.
	NeighborhoodEID = "f/neighborhood"
	DistanceEID     = "f/distance"
)

// BuildCompositeID builds the composite id for an attribute child:
//
//	{parent}!!op(!!"{child}"!!)op!!{rankerEID}
//
// The child id is strconv-quoted so ids containing the separator survive the
// round trip.
func BuildCompositeID(parent, child SuggestionID, rankerEID string) SuggestionID {
	return SuggestionID(strings.Join([]string{
		string(parent),
		OpBegin,
		strconv.Quote(string(child)),
		OpEnd,
		rankerEID,
	}, MultiEntitySep))
}

// ParseCompositeID splits a composite id back into its parts. It fails on
// anything BuildCompositeID could not have produced.
func ParseCompositeID(id SuggestionID) (parent, child SuggestionID, rankerEID string, err error) {
	parts := strings.Split(string(id), MultiEntitySep)
	if len(parts) != 5 {
		return "", "", "", fmt.Errorf("composite id %q: want 5 segments, got %d", id, len(parts))
	}
	if parts[1] != OpBegin || parts[3] != OpEnd {
		return "", "", "", fmt.Errorf("composite id %q: malformed op brackets", id)
	}
	unquoted, err := strconv.Unquote(parts[2])
	if err != nil {
		return "", "", "", fmt.Errorf("composite id %q: child segment: %w", id, err)
	}
	return SuggestionID(parts[0]), SuggestionID(unquoted), parts[4], nil
}

// RankerEIDForChild picks the ranker filter entity id for an attribute child
// record: neighborhoods rank by containment, everything else by distance.
func RankerEIDForChild(child *CompleteSuggestion) string {
	if child != nil && child.SrcType == SrcNeighborhood {
		return NeighborhoodEID
	}
	return DistanceEID
}
