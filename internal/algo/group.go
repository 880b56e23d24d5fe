package algo

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/runger/suggestd/internal/merge"
	"github.com/runger/suggestd/internal/metrics"
	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/pool"
	"github.com/runger/suggestd/internal/registry"
)

// Group timeouts.
const (
	DefaultTimeoutRequiredMs = 100
	DefaultTimeoutOptionalMs = 30
)

// ChildParams configures one member of an algorithm group.
type ChildParams struct {
	ID       string  `json:"id"`
	Weight   float64 `json:"weight,omitempty"`
	Op       string  `json:"op,omitempty"` // merge operator, default ">"
	Required bool    `json:"required,omitempty"`
}

type groupConfig struct {
	ID                string        `json:"id,omitempty"`
	AlgoParams        []ChildParams `json:"algo_params"`
	TimeoutRequiredMs int           `json:"timeout_required_algos_ms,omitempty"`
	TimeoutOptionalMs int           `json:"timeout_optional_algos_ms,omitempty"`
}

type groupChild struct {
	params ChildParams
	algo   *registry.Handle[Algorithm]
	merger *registry.Handle[merge.Merger]
}

// Group runs its configured child retrievers concurrently under the
// required/optional two-phase deadline and merges their outputs into one
// candidate set keyed by suggestion id.
type Group struct {
	algos   *registry.Registry[Algorithm]
	mergers *registry.Registry[merge.Merger]
	logger  *slog.Logger

	cfg             groupConfig
	children        []*groupChild
	timeoutRequired time.Duration
	timeoutOptional time.Duration
}

// NewGroup creates a group resolving children and mergers through the given
// registries at Initialize.
func NewGroup(algos *registry.Registry[Algorithm], mergers *registry.Registry[merge.Merger], logger *slog.Logger) *Group {
	if logger == nil {
		logger = slog.Default()
	}
	return &Group{algos: algos, mergers: mergers, logger: logger}
}

// Configure accepts the group config blob.
func (g *Group) Configure(raw json.RawMessage) error {
	if err := json.Unmarshal(raw, &g.cfg); err != nil {
		return fmt.Errorf("group config: %w", err)
	}
	if len(g.cfg.AlgoParams) == 0 {
		return fmt.Errorf("group config: algo_params is required")
	}
	if g.cfg.TimeoutRequiredMs <= 0 {
		g.cfg.TimeoutRequiredMs = DefaultTimeoutRequiredMs
	}
	if g.cfg.TimeoutOptionalMs <= 0 {
		g.cfg.TimeoutOptionalMs = DefaultTimeoutOptionalMs
	}
	g.timeoutRequired = time.Duration(g.cfg.TimeoutRequiredMs) * time.Millisecond
	g.timeoutOptional = time.Duration(g.cfg.TimeoutOptionalMs) * time.Millisecond
	return nil
}

// Initialize resolves every child algorithm and merger. Any unknown name
// fails init.
func (g *Group) Initialize() error {
	for _, params := range g.cfg.AlgoParams {
		if params.Weight == 0 {
			params.Weight = 1
		}
		if params.Op == "" {
			params.Op = merge.OpMax
		}
		algoHandle, err := g.algos.MakeShared(params.ID, nil)
		if err != nil {
			g.releaseChildren()
			return fmt.Errorf("group: child %q: %w", params.ID, err)
		}
		mergerHandle, err := g.mergers.MakeShared(params.Op, nil)
		if err != nil {
			algoHandle.Release()
			g.releaseChildren()
			return fmt.Errorf("group: child %q merger %q: %w", params.ID, params.Op, err)
		}
		g.children = append(g.children, &groupChild{
			params: params,
			algo:   algoHandle,
			merger: mergerHandle,
		})
	}
	return nil
}

func (g *Group) releaseChildren() {
	for _, child := range g.children {
		child.algo.Release()
		child.merger.Release()
	}
	g.children = nil
}

type childRun struct {
	child *groupChild
	resp  *model.SuggestResponse
	done  atomic.Bool
}

// GetCompletions scatters the children across the worker pool, waits for
// required members with the required timeout, grants optional members their
// bounded extension only when the merged set is still short of the request,
// and emits the merged candidates. A child that fails or times out
// contributes nothing; the group itself still succeeds.
func (g *Group) GetCompletions(req *model.SuggestRequest, resp *model.SuggestResponse, ctx *model.Context) int {
	defer ctx.Done()

	numRequired, numOptional := 0, 0
	for _, child := range g.children {
		if child.params.Required {
			numRequired++
		} else {
			numOptional++
		}
	}
	requiredLatch := pool.NewLatch(numRequired)
	optionalLatch := pool.NewLatch(numOptional)

	runs := make([]*childRun, len(g.children))
	for i, child := range g.children {
		run := &childRun{child: child, resp: &model.SuggestResponse{}}
		runs[i] = run

		latch := optionalLatch
		if child.params.Required {
			latch = requiredLatch
		}
		// The wrapper owns the latch so the finished flag is always set
		// before the latch releases; a child context carries no latch.
		childCtx := ctx.Child(nil)
		schedule(ctx, func() {
			notifier := pool.NewNotifier(latch)
			defer notifier.Done()
			run.child.algo.Get().GetCompletions(req, run.resp, childCtx)
			run.done.Store(true)
		})
	}

	if !requiredLatch.WaitTimeout(g.timeoutRequired) {
		metrics.Global.LatchTimeouts.Add(1)
		g.logger.Warn("required algorithms timed out", "group", g.cfg.ID,
			"timeout_ms", g.cfg.TimeoutRequiredMs)
	}

	merged := make(map[model.SuggestionID]*model.Completion)
	var order []model.SuggestionID
	mergeRun := func(run *childRun) {
		if !run.done.Load() {
			return
		}
		if !run.resp.Success {
			metrics.Global.LeafFailures.Add(1)
			return
		}
		weight := run.child.params.Weight
		if weight == 0 {
			weight = 1
		}
		for _, c := range run.resp.Completions {
			cc := c.Clone()
			cc.Score *= weight
			if existing, ok := merged[cc.SuggestionID]; ok {
				run.child.merger.Get().Merge(existing, cc)
			} else {
				merged[cc.SuggestionID] = cc
				order = append(order, cc.SuggestionID)
			}
		}
	}

	for _, run := range runs {
		if run.child.params.Required {
			mergeRun(run)
		}
	}

	if len(merged) < req.NumSuggestions && numOptional > 0 {
		if !optionalLatch.WaitTimeout(g.timeoutOptional) {
			metrics.Global.LatchTimeouts.Add(1)
			g.logger.Warn("optional algorithms timed out", "group", g.cfg.ID,
				"timeout_ms", g.cfg.TimeoutOptionalMs)
		}
	}
	for _, run := range runs {
		if !run.child.params.Required {
			mergeRun(run)
		}
	}

	for _, id := range order {
		resp.Completions = append(resp.Completions, merged[id])
	}
	resp.Success = true
	return len(resp.Completions)
}
