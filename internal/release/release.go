// Package release projects the internal suggestion response onto the wire
// shape served to production clients. Internal scores, algo types, and debug
// traces never leave the process through this reply.
package release

import (
	"strings"

	"github.com/runger/suggestd/internal/model"
)

// Suggestion is one entry of the production reply.
type Suggestion struct {
	SrcType    model.SrcType `json:"src_type"`
	SrcID      string        `json:"src_id"`
	Latitude   float64       `json:"lat"`
	Longitude  float64       `json:"lon"`
	Display    string        `json:"display"`
	Annotation string        `json:"annotation,omitempty"`
	Child      bool          `json:"child,omitempty"`
	Query      string        `json:"query,omitempty"`
}

// Reply is the production response envelope.
type Reply struct {
	Success       bool         `json:"success"`
	EnableInstant bool         `json:"enable_instant"`
	Suggestions   []Suggestion `json:"suggestions"`
}

// Build projects an internal response. Parents carry an annotation chosen by
// the disambiguation rule; children carry the echo query for the UI.
func Build(resp *model.SuggestResponse) *Reply {
	reply := &Reply{
		Success:       resp.Success,
		EnableInstant: resp.EnableInstant,
		Suggestions:   make([]Suggestion, 0, len(resp.Completions)),
	}

	// Cities whose (normalized, last annotation) key collides need their full
	// annotation to stay distinguishable.
	disambiguation := make(map[string]int)
	parents := make(map[model.SuggestionID]*model.CompleteSuggestion)
	for _, c := range resp.Completions {
		if c.Suggestion == nil {
			continue
		}
		if c.ParentID == "" {
			parents[c.SuggestionID] = c.Suggestion
			if c.Suggestion.SrcType == model.SrcCity {
				disambiguation[disambiguationKey(c.Suggestion)]++
			}
		}
	}

	for _, c := range resp.Completions {
		sug := c.Suggestion
		if sug == nil {
			continue
		}
		entry := Suggestion{
			SrcType:   sug.SrcType,
			SrcID:     sug.SrcID,
			Latitude:  sug.Latitude,
			Longitude: sug.Longitude,
			Display:   sug.Display,
		}
		if c.ParentID == "" {
			full := sug.SrcType == model.SrcCity && disambiguation[disambiguationKey(sug)] > 1
			entry.Annotation = annotation(sug, full)
		} else {
			entry.Child = true
			if parent, ok := parents[c.ParentID]; ok {
				entry.Query = parent.Display + " " + sug.Display
			} else {
				entry.Query = sug.Display
			}
		}
		reply.Suggestions = append(reply.Suggestions, entry)
	}
	return reply
}

// disambiguationKey identifies a city by normalized name plus its last
// annotation.
func disambiguationKey(sug *model.CompleteSuggestion) string {
	last := ""
	if len(sug.Annotations) > 0 {
		last = sug.Annotations[len(sug.Annotations)-1]
	}
	return sug.Normalized + "\x00" + strings.ToLower(last)
}

// annotation joins the qualifier list: the full form keeps every qualifier,
// the short form keeps only the last one.
func annotation(sug *model.CompleteSuggestion, full bool) string {
	if len(sug.Annotations) == 0 {
		return ""
	}
	if full {
		return strings.Join(sug.Annotations, ", ")
	}
	return sug.Annotations[len(sug.Annotations)-1]
}
