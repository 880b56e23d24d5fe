// Package rescore provides the twiddlers of the suggestion pipeline:
// components that compute one multiplicative score per existing candidate
// without introducing new ones, and the group that composes several
// twiddlers under the required/optional parallel discipline.
package rescore

import (
	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/registry"
)

// Rescorer computes one score per completion, aligned with
// resp.Completions. Scores are multiplicative over the completion's current
// score: 1 is neutral, >1 promotes, <1 demotes, exactly 0 filters. The
// context is notified exactly once on return.
type Rescorer interface {
	registry.Component
	GetCompletionScores(req *model.SuggestRequest, resp *model.SuggestResponse, ctx *model.Context) ([]float64, bool)
}

// Apply multiplies a combined score stream into the response's completions.
// The stream must be aligned with resp.Completions.
func Apply(resp *model.SuggestResponse, scores []float64) {
	for i, c := range resp.Completions {
		if i >= len(scores) {
			return
		}
		c.Score *= scores[i]
	}
}
