// Package pipeline implements the per-request suggestion flow: request
// preparation, the primary/fallback/secondary retrieval stages, and response
// finalization. A Pipeline is single-threaded with respect to its own state;
// the algorithms it invokes scatter onto the shared worker pool.
package pipeline

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/runger/suggestd/internal/algo"
	"github.com/runger/suggestd/internal/dedupe"
	"github.com/runger/suggestd/internal/metrics"
	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/normalize"
	"github.com/runger/suggestd/internal/pool"
	"github.com/runger/suggestd/internal/rescore"
)

// Config holds the pipeline tunables.
type Config struct {
	// MaxSuggestionsMultiplier widens the working set before deduplication:
	// the response is truncated to num_suggestions * multiplier, deduplicated,
	// then truncated to num_suggestions.
	MaxSuggestionsMultiplier int

	// MinSecondarySuggestions floors how many secondary completions may be
	// appended even when the primary flow already filled the response.
	MinSecondarySuggestions int

	// Instant-search gates.
	InstantMinFreq          float64
	InstantMinSelectionProb float64

	// Request defaults.
	DefaultCountry       string
	DefaultLanguage      string
	NumSuggestionsMobile int
	NumSuggestionsWeb    int
}

// DefaultConfig returns the production pipeline tunables.
func DefaultConfig() Config {
	return Config{
		MaxSuggestionsMultiplier: 6,
		MinSecondarySuggestions:  6,
		InstantMinFreq:           10,
		InstantMinSelectionProb:  0.4,
		DefaultCountry:           "US",
		DefaultLanguage:          "en",
		NumSuggestionsMobile:     5,
		NumSuggestionsWeb:        10,
	}
}

// Deps are the resolved collaborators a pipeline drives. Primary is the only
// mandatory algorithm; nil slots disable their stage.
type Deps struct {
	Primary   algo.Algorithm
	Fallback  algo.Algorithm
	Secondary algo.Algorithm

	PrimaryRescorer   rescore.Rescorer
	SecondaryRescorer rescore.Rescorer

	Dedupers dedupe.Chain

	Pool   *pool.Pool
	Logger *slog.Logger
}

// Pipeline orchestrates one request at a time. Pipelines are stateless across
// requests and safe for concurrent use.
type Pipeline struct {
	cfg  Config
	deps Deps
}

// New creates a pipeline. Zero-valued config fields fall back to defaults.
func New(cfg Config, deps Deps) *Pipeline {
	def := DefaultConfig()
	if cfg.MaxSuggestionsMultiplier <= 0 {
		cfg.MaxSuggestionsMultiplier = def.MaxSuggestionsMultiplier
	}
	if cfg.MinSecondarySuggestions <= 0 {
		cfg.MinSecondarySuggestions = def.MinSecondarySuggestions
	}
	if cfg.InstantMinFreq <= 0 {
		cfg.InstantMinFreq = def.InstantMinFreq
	}
	if cfg.InstantMinSelectionProb <= 0 {
		cfg.InstantMinSelectionProb = def.InstantMinSelectionProb
	}
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = def.DefaultCountry
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = def.DefaultLanguage
	}
	if cfg.NumSuggestionsMobile <= 0 {
		cfg.NumSuggestionsMobile = def.NumSuggestionsMobile
	}
	if cfg.NumSuggestionsWeb <= 0 {
		cfg.NumSuggestionsWeb = def.NumSuggestionsWeb
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// Suggest runs the full request flow and returns the finished response.
// Responses with Success=false carry no completions.
func (p *Pipeline) Suggest(req *model.SuggestRequest) *model.SuggestResponse {
	start := time.Now()
	metrics.Global.Requests.Add(1)
	defer func() {
		metrics.Global.LatencySumMs.Add(time.Since(start).Milliseconds())
	}()

	resp := &model.SuggestResponse{}
	if !p.PrepareRequest(req) {
		metrics.Global.EmptyQueries.Add(1)
		p.deps.Logger.Debug("request rejected", "reason", "empty normalized query")
		return resp
	}

	p.runPrimary(req, resp)
	p.runSecondary(req, resp)
	p.Finalize(req, resp)
	return resp
}

// PrepareRequest normalizes the input and fills request defaults. It reports
// false when the normalized query is empty, which rejects the request.
func (p *Pipeline) PrepareRequest(req *model.SuggestRequest) bool {
	req.NormalizedQuery = normalize.Query(req.Input)
	req.LastWordComplete = normalize.LastWordComplete(req.Input)
	if req.UserCountry == "" {
		req.UserCountry = p.cfg.DefaultCountry
	}
	if req.UserLanguage == "" {
		req.UserLanguage = p.cfg.DefaultLanguage
	}
	if req.NumSuggestions <= 0 {
		if req.Channel.IsMobile() {
			req.NumSuggestions = p.cfg.NumSuggestionsMobile
		} else {
			req.NumSuggestions = p.cfg.NumSuggestionsWeb
		}
	}
	return req.NormalizedQuery != ""
}

// runPrimary executes the primary algorithm, falling back when it produces
// nothing.
func (p *Pipeline) runPrimary(req *model.SuggestRequest, resp *model.SuggestResponse) {
	ctx := &model.Context{Pool: p.deps.Pool}
	p.deps.Primary.GetCompletions(req, resp, ctx)
	if resp.Success && len(resp.Completions) > 0 {
		metrics.Global.PrimaryHits.Add(1)
		p.applyRescorer(p.deps.PrimaryRescorer, req, resp)
		p.rankAndDedupe(req, resp)
		return
	}

	metrics.Global.FallbackRuns.Add(1)
	if p.deps.Fallback == nil {
		return
	}
	fallbackResp := &model.SuggestResponse{}
	fallbackCtx := &model.Context{Pool: p.deps.Pool}
	p.deps.Fallback.GetCompletions(req, fallbackResp, fallbackCtx)
	if !fallbackResp.Success || len(fallbackResp.Completions) == 0 {
		return
	}
	resp.Success = true
	resp.Completions = fallbackResp.Completions
	p.applyRescorer(p.deps.PrimaryRescorer, req, resp)
	p.rankAndDedupe(req, resp)
}

// runSecondary augments a non-empty response with secondary completions. The
// secondary algorithm sees the current response through its context.
func (p *Pipeline) runSecondary(req *model.SuggestRequest, resp *model.SuggestResponse) {
	if p.deps.Secondary == nil || len(resp.Completions) == 0 {
		return
	}
	metrics.Global.SecondaryRuns.Add(1)

	secondary := &model.SuggestResponse{}
	ctx := &model.Context{Pool: p.deps.Pool, CurrentResponse: resp}
	p.deps.Secondary.GetCompletions(req, secondary, ctx)
	if !secondary.Success || len(secondary.Completions) == 0 {
		return
	}

	p.applyRescorer(p.deps.SecondaryRescorer, req, secondary)
	sortCompletions(secondary.Completions)
	room := req.NumSuggestions - len(resp.Completions)
	if room < p.cfg.MinSecondarySuggestions {
		room = p.cfg.MinSecondarySuggestions
	}
	truncate(secondary, room)

	resp.Completions = append(resp.Completions, secondary.Completions...)
	p.rankAndDedupe(req, resp)
}

// Finalize trims the response, restores parent/child adjacency, decides
// instant-search eligibility, and stamps the source trace on every
// completion. A response that ends up with no completions is a retrieval
// failure regardless of what the algorithms reported.
func (p *Pipeline) Finalize(req *model.SuggestRequest, resp *model.SuggestResponse) {
	truncate(resp, req.NumSuggestions)
	FixPositions(resp)
	if len(resp.Completions) == 0 {
		resp.Success = false
		return
	}
	p.checkInstant(resp)
	for _, c := range resp.Completions {
		c.AddDebug("src:" + c.AlgoType.String())
	}
}

// applyRescorer runs a rescorer group and multiplies its combined stream into
// the response. An unsuccessful group leaves the scores untouched.
func (p *Pipeline) applyRescorer(r rescore.Rescorer, req *model.SuggestRequest, resp *model.SuggestResponse) {
	if r == nil || len(resp.Completions) == 0 {
		return
	}
	ctx := &model.Context{Pool: p.deps.Pool}
	scores, ok := r.GetCompletionScores(req, resp, ctx)
	if !ok {
		p.deps.Logger.Debug("rescorer produced no usable stream", "completions", len(resp.Completions))
		return
	}
	rescore.Apply(resp, scores)
}

// rankAndDedupe is the shared ranking tail of the primary and secondary
// flows: drop filtered candidates, sort, widen-truncate, dedupe, final
// truncate.
func (p *Pipeline) rankAndDedupe(req *model.SuggestRequest, resp *model.SuggestResponse) {
	dropFiltered(resp)
	sortCompletions(resp.Completions)
	truncate(resp, req.NumSuggestions*p.cfg.MaxSuggestionsMultiplier)
	p.deps.Dedupers.Dedupe(resp)
	truncate(resp, req.NumSuggestions)
}

// dropFiltered removes zero-scored completions. A multiplicative rescorer
// emits 0 to filter a candidate out, not to rank it last.
func dropFiltered(resp *model.SuggestResponse) {
	kept := resp.Completions[:0]
	for _, c := range resp.Completions {
		if c.Score == 0 {
			continue
		}
		kept = append(kept, c)
	}
	resp.Completions = kept
}

// checkInstant enables instant search when the top completion is both
// frequent enough and dominant enough over the parent score mass.
func (p *Pipeline) checkInstant(resp *model.SuggestResponse) {
	if len(resp.Completions) == 0 {
		return
	}
	top := resp.Completions[0]
	if top.Suggestion == nil || top.Suggestion.Freq < p.cfg.InstantMinFreq {
		return
	}
	total := 0.0
	for _, c := range resp.Completions {
		if c.ParentID == "" {
			total += c.Score
		}
	}
	if top.Score < total*p.cfg.InstantMinSelectionProb {
		return
	}
	resp.EnableInstant = true
	metrics.Global.InstantEnabled.Add(1)
}

// FixPositions rewrites the completion order so every child immediately
// follows its parent, preserving the sorted order among parents and the
// recorded order among each parent's children. Children whose parent is not
// present are dropped. Idempotent.
func FixPositions(resp *model.SuggestResponse) {
	type childAt struct {
		index int
		c     *model.Completion
	}
	children := make(map[model.SuggestionID][]childAt)
	hasChildren := false
	for i, c := range resp.Completions {
		if c.ParentID != "" {
			children[c.ParentID] = append(children[c.ParentID], childAt{index: i, c: c})
			hasChildren = true
		}
	}
	if !hasChildren {
		return
	}

	ordered := make([]*model.Completion, 0, len(resp.Completions))
	for _, c := range resp.Completions {
		if c.ParentID != "" {
			continue
		}
		ordered = append(ordered, c)
		for _, child := range children[c.SuggestionID] {
			if len(ordered) != child.index {
				child.c.AddDebug(fmt.Sprintf("reordered: %d -> %d", child.index, len(ordered)))
			}
			ordered = append(ordered, child.c)
		}
	}
	resp.Completions = ordered
}

// sortCompletions orders by score descending with a stable tie-break on
// source type ascending.
func sortCompletions(cs []*model.Completion) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return srcTypeOf(cs[i]) < srcTypeOf(cs[j])
	})
}

func srcTypeOf(c *model.Completion) model.SrcType {
	if c.Suggestion == nil {
		return model.SrcUnknown
	}
	return c.Suggestion.SrcType
}

// truncate caps the completion list at n. Non-positive n leaves the response
// untouched.
func truncate(resp *model.SuggestResponse, n int) {
	if n > 0 && len(resp.Completions) > n {
		resp.Completions = resp.Completions[:n]
	}
}
