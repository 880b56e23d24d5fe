// Package dedupe provides the pluggable deduplicator chain that runs over a
// ranked response. Dedupers assume the input is already ordered best to
// worst, so the retained occurrence is always the highest-scoring one.
package dedupe

import (
	"encoding/json"

	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/registry"
)

// Deduper removes duplicates from a sorted response in place.
type Deduper interface {
	registry.Component
	Dedupe(resp *model.SuggestResponse)
}

// Duplicate removes later occurrences of a suggestion id, keeping the first
// (best-ranked) one. Idempotent.
type Duplicate struct{}

// NewDuplicate creates the duplicate-id deduper.
func NewDuplicate() *Duplicate { return &Duplicate{} }

func (Duplicate) Configure(json.RawMessage) error { return nil }

func (Duplicate) Initialize() error { return nil }

// Dedupe walks the completions in order with a seen-set on suggestion id.
func (Duplicate) Dedupe(resp *model.SuggestResponse) {
	seen := make(map[model.SuggestionID]bool, len(resp.Completions))
	kept := resp.Completions[:0]
	for _, c := range resp.Completions {
		if seen[c.SuggestionID] {
			continue
		}
		seen[c.SuggestionID] = true
		kept = append(kept, c)
	}
	resp.Completions = kept
}

// Chain runs dedupers in configured order; each deduper sees the previous
// one's output.
type Chain []Deduper

// Dedupe applies the chain.
func (ch Chain) Dedupe(resp *model.SuggestResponse) {
	for _, d := range ch {
		d.Dedupe(resp)
	}
}
