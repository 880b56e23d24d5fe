package algo

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/normalize"
	"github.com/runger/suggestd/internal/pool"
	"github.com/runger/suggestd/internal/registry"
)

// Bag-of-words defaults.
const (
	DefaultBowMultiplier = 4
	DefaultBowMaxBoost   = 5.0
	defaultBowLimit      = 10 // num_suggestions fallback when the request carries none
)

type bowConfig struct {
	WordAlgo   string  `json:"word_suggest_algo_name"`
	Multiplier int     `json:"max_suggestions_multiplier,omitempty"`
	MaxBoost   float64 `json:"max_boost,omitempty"`
}

// BagOfWords splits the query into word tokens, re-issues each token against
// a word-level key-value retriever in parallel, and boosts the union of
// candidates by how completely the query words appear in each candidate.
type BagOfWords struct {
	algos *registry.Registry[Algorithm]

	cfg  bowConfig
	word *registry.Handle[Algorithm]
}

// NewBagOfWords creates a retriever resolving its word algorithm by name at
// Initialize.
func NewBagOfWords(algos *registry.Registry[Algorithm]) *BagOfWords {
	return &BagOfWords{algos: algos}
}

// Configure accepts {"word_suggest_algo_name", "max_suggestions_multiplier",
// "max_boost"}.
func (b *BagOfWords) Configure(raw json.RawMessage) error {
	if err := json.Unmarshal(raw, &b.cfg); err != nil {
		return fmt.Errorf("bow config: %w", err)
	}
	if b.cfg.WordAlgo == "" {
		return fmt.Errorf("bow config: word_suggest_algo_name is required")
	}
	if b.cfg.Multiplier <= 0 {
		b.cfg.Multiplier = DefaultBowMultiplier
	}
	if b.cfg.MaxBoost <= 0 {
		b.cfg.MaxBoost = DefaultBowMaxBoost
	}
	return nil
}

// Initialize resolves the word retriever.
func (b *BagOfWords) Initialize() error {
	handle, err := b.algos.MakeShared(b.cfg.WordAlgo, nil)
	if err != nil {
		return fmt.Errorf("bow: %w", err)
	}
	b.word = handle
	return nil
}

// GetCompletions runs one word lookup per token on the pool under a shared
// latch, unions the candidates, and applies the mismatch-extent boost:
//
//	boost = max_boost * (1 - mismatch/(len(query)*len(candidate)))
//
// Candidates with no word overlap are dropped. There is no lower clamp: a
// candidate matching few words may end up demoted below its index score.
func (b *BagOfWords) GetCompletions(req *model.SuggestRequest, resp *model.SuggestResponse, ctx *model.Context) int {
	defer ctx.Done()

	tokens := normalize.Tokens(req.NormalizedQuery)
	if len(tokens) == 0 {
		return 0
	}

	latch := pool.NewLatch(len(tokens))
	wordResps := make([]*model.SuggestResponse, len(tokens))
	for i, tok := range tokens {
		wordReq := *req
		wordReq.NormalizedQuery = tok
		wordResp := &model.SuggestResponse{}
		wordResps[i] = wordResp
		wordCtx := ctx.Child(latch)
		schedule(ctx, func() {
			defer wordCtx.Done()
			b.word.Get().GetCompletions(&wordReq, wordResp, wordCtx)
		})
	}
	latch.Wait()

	seen := make(map[model.SuggestionID]bool)
	var candidates []*model.Completion
	for _, wordResp := range wordResps {
		if !wordResp.Success {
			continue
		}
		for _, c := range wordResp.Completions {
			if seen[c.SuggestionID] || c.Suggestion == nil {
				continue
			}
			seen[c.SuggestionID] = true
			candidates = append(candidates, c.Clone())
		}
	}

	var boosted []*model.Completion
	for _, c := range candidates {
		mismatch := normalize.WordMismatchExtent(c.Suggestion.Normalized, tokens)
		if mismatch < 0 {
			continue
		}
		maxMismatch := float64(len(req.NormalizedQuery) * len(c.Suggestion.Normalized))
		ratio := 0.0
		if maxMismatch > 0 {
			ratio = mismatch / maxMismatch
		}
		boost := b.cfg.MaxBoost * (1 - ratio)
		c.Score *= boost
		c.AlgoType |= model.AlgoBow
		c.AddDebug(fmt.Sprintf("bow boost %.4g (mismatch %.4g)", boost, mismatch))
		boosted = append(boosted, c)
	}

	sort.SliceStable(boosted, func(i, j int) bool {
		return boosted[i].Score > boosted[j].Score
	})
	limit := req.NumSuggestions
	if limit <= 0 {
		limit = defaultBowLimit
	}
	limit *= b.cfg.Multiplier
	if len(boosted) > limit {
		boosted = boosted[:limit]
	}

	resp.Completions = append(resp.Completions, boosted...)
	resp.Success = true
	return len(boosted)
}
