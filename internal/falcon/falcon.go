// Package falcon provides the read-only stores mapping a SuggestionID to its
// full CompleteSuggestion record. Stores are loaded once at init, pinned by
// the manager, and shared without locking: records are immutable for the
// process lifetime.
package falcon

import (
	"github.com/runger/suggestd/internal/metrics"
	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/pool"
	"github.com/runger/suggestd/internal/registry"
)

// Store is the falcon contract. Find reports a record by id; implementations
// are safe for concurrent readers.
type Store interface {
	registry.Component
	Find(id model.SuggestionID) (*model.CompleteSuggestion, bool)
}

// AddCompleteSuggestions resolves the CompleteSuggestion reference of every
// completion in the response that is still missing one. Completions whose id
// the store does not know are dropped. A zero score is initialised from the
// record's base score. The latch, when non-nil, is notified exactly once on
// return, panics included.
func AddCompleteSuggestions(s Store, resp *model.SuggestResponse, latch *pool.Latch) {
	n := pool.NewNotifier(latch)
	defer n.Done()

	kept := resp.Completions[:0]
	for _, c := range resp.Completions {
		if c.Suggestion == nil {
			sug, ok := s.Find(c.SuggestionID)
			if !ok {
				metrics.Global.FalconMisses.Add(1)
				continue
			}
			c.Suggestion = sug
		}
		if c.Score == 0 {
			c.Score = c.Suggestion.BaseScore
		}
		kept = append(kept, c)
	}
	resp.Completions = kept
}
