package rescore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

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

// Combination operators for composing score streams.
const (
	OpAdd = "+"
	OpMul = "*"
)

// ChildParams configures one member of a rescorer group.
type ChildParams struct {
	ID       string  `json:"id"`
	Weight   float64 `json:"weight,omitempty"`
	Op       string  `json:"op,omitempty"` // element-wise combination, default "*"
	Required bool    `json:"required,omitempty"`
}

type groupConfig struct {
	ID                string        `json:"id,omitempty"`
	TwiddlerParams    []ChildParams `json:"twiddler_params"`
	TimeoutRequiredMs int           `json:"timeout_required_twiddlers_ms,omitempty"`
	TimeoutOptionalMs int           `json:"timeout_optional_twiddlers_ms,omitempty"`
}

type groupChild struct {
	params   ChildParams
	rescorer *registry.Handle[Rescorer]
}

// Group composes several rescorers. Children run concurrently under the
// required/optional latch discipline; their per-completion score streams are
// combined element-wise in configuration order.
type Group struct {
	rescorers *registry.Registry[Rescorer]
	logger    *slog.Logger

	cfg             groupConfig
	children        []*groupChild
	timeoutRequired time.Duration
	timeoutOptional time.Duration
}

// NewGroup creates a group resolving its children at Initialize.
func NewGroup(rescorers *registry.Registry[Rescorer], logger *slog.Logger) *Group {
	if logger == nil {
		logger = slog.Default()
	}
	return &Group{rescorers: rescorers, logger: logger}
}

// Configure accepts the rescorer group config blob.
func (g *Group) Configure(raw json.RawMessage) error {
	if err := json.Unmarshal(raw, &g.cfg); err != nil {
		return fmt.Errorf("rescorer group config: %w", err)
	}
	if len(g.cfg.TwiddlerParams) == 0 {
		return fmt.Errorf("rescorer group config: twiddler_params is required")
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

// Initialize resolves every child rescorer; any unknown name fails init.
func (g *Group) Initialize() error {
	for _, params := range g.cfg.TwiddlerParams {
		if params.Weight == 0 {
			params.Weight = 1
		}
		if params.Op == "" {
			params.Op = OpMul
		}
		if params.Op != OpAdd && params.Op != OpMul {
			g.releaseChildren()
			return fmt.Errorf("rescorer group: child %q: unknown op %q", params.ID, params.Op)
		}
		handle, err := g.rescorers.MakeShared(params.ID, nil)
		if err != nil {
			g.releaseChildren()
			return fmt.Errorf("rescorer group: child %q: %w", params.ID, err)
		}
		g.children = append(g.children, &groupChild{params: params, rescorer: handle})
	}
	return nil
}

func (g *Group) releaseChildren() {
	for _, child := range g.children {
		child.rescorer.Release()
	}
	g.children = nil
}

type childRun struct {
	child   *groupChild
	scores  []float64
	success bool
	done    atomic.Bool
}

// GetCompletionScores scatters the children, waits for required members,
// grants optional members their extension only while the combined stream is
// still incomplete, and composes the finished streams:
//
//   - the first successful child's scores seed the combined stream;
//   - each later child's scores are multiplied by its weight, then combined
//     element-wise with its operator (+ or *);
//   - a child whose stream length differs from the completion count is
//     discarded with a warning.
//
// Success means the combined stream covers every completion.
func (g *Group) GetCompletionScores(req *model.SuggestRequest, resp *model.SuggestResponse, ctx *model.Context) ([]float64, bool) {
	defer ctx.Done()

	want := len(resp.Completions)

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
		run := &childRun{child: child}
		runs[i] = run

		latch := optionalLatch
		if child.params.Required {
			latch = requiredLatch
		}
		childCtx := ctx.Child(nil)
		task := func() {
			notifier := pool.NewNotifier(latch)
			defer notifier.Done()
			run.scores, run.success = run.child.rescorer.Get().GetCompletionScores(req, resp, childCtx)
			run.done.Store(true)
		}
		if ctx != nil && ctx.Pool != nil {
			ctx.Pool.Add(task)
		} else {
			task()
		}
	}

	if !requiredLatch.WaitTimeout(g.timeoutRequired) {
		metrics.Global.LatchTimeouts.Add(1)
		g.logger.Warn("required twiddlers timed out", "group", g.cfg.ID,
			"timeout_ms", g.cfg.TimeoutRequiredMs)
	}

	var combined []float64
	combineRun := func(run *childRun) {
		if !run.done.Load() || !run.success {
			return
		}
		if len(run.scores) != want {
			metrics.Global.RescoreDiscards.Add(1)
			g.logger.Warn("twiddler score stream length mismatch",
				"group", g.cfg.ID, "child", run.child.params.ID,
				"got", len(run.scores), "want", want)
			return
		}
		if combined == nil {
			combined = append([]float64(nil), run.scores...)
			return
		}
		weight := run.child.params.Weight
		for i, s := range run.scores {
			weighted := s * weight
			switch run.child.params.Op {
			case OpAdd:
				combined[i] += weighted
			case OpMul:
				combined[i] *= weighted
			}
		}
	}

	for _, run := range runs {
		if run.child.params.Required {
			combineRun(run)
		}
	}

	if len(combined) != want && numOptional > 0 {
		if !optionalLatch.WaitTimeout(g.timeoutOptional) {
			metrics.Global.LatchTimeouts.Add(1)
			g.logger.Warn("optional twiddlers timed out", "group", g.cfg.ID,
				"timeout_ms", g.cfg.TimeoutOptionalMs)
		}
	}
	for _, run := range runs {
		if !run.child.params.Required {
			combineRun(run)
		}
	}

	return combined, len(combined) == want
}
