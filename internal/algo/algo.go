// Package algo provides the retrieval algorithms of the suggestion pipeline:
// the key-value retriever over a prefix or alternate-names index, the
// parallel algorithm group, the bag-of-words retriever, the attribute
// retriever, and the reserved stubs.
package algo

import (
	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/registry"
)

// Algorithm produces candidate completions for a prepared request.
//
// Contract: fill resp.Completions with candidates, set resp.Success iff a
// valid result was produced, and notify the context exactly once on return,
// failure included. The return value is the number of completions added.
type Algorithm interface {
	registry.Component
	GetCompletions(req *model.SuggestRequest, resp *model.SuggestResponse, ctx *model.Context) int
}

// schedule runs a task on the context's pool, or inline when no pool is
// attached (tests, synchronous sub-lookups).
func schedule(ctx *model.Context, task func()) {
	if ctx != nil && ctx.Pool != nil {
		ctx.Pool.Add(task)
		return
	}
	task()
}
