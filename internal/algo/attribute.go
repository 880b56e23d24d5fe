package algo

import (
	"encoding/json"
	"fmt"

	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/registry"
)

// Attribute retriever defaults.
const (
	DefaultMaxAttributeCandidates = 3

	// DefaultOrderKey is the special index key holding the fallback
	// attribute list used when a parent has no attributes of its own.
	DefaultOrderKey = "m/default_order"
)

type attributeConfig struct {
	IndexAlgo     string `json:"attribute_index_algo_name"`
	MaxCandidates int    `json:"max_attribute_candidates,omitempty"`
}

// Attribute is the secondary-phase retriever. For the top parent completions
// of the already-computed primary response it looks up associated
// attribute-child completions, inherits the parent's score multiplicatively,
// and rewrites each child's id to a composite id carrying the parent and the
// ranker filter entity.
type Attribute struct {
	algos *registry.Registry[Algorithm]

	cfg   attributeConfig
	index *registry.Handle[Algorithm]
}

// NewAttribute creates a retriever resolving its attribute-index algorithm
// by name at Initialize.
func NewAttribute(algos *registry.Registry[Algorithm]) *Attribute {
	return &Attribute{algos: algos}
}

// Configure accepts {"attribute_index_algo_name",
// "max_attribute_candidates"}.
func (a *Attribute) Configure(raw json.RawMessage) error {
	if err := json.Unmarshal(raw, &a.cfg); err != nil {
		return fmt.Errorf("attribute config: %w", err)
	}
	if a.cfg.IndexAlgo == "" {
		return fmt.Errorf("attribute config: attribute_index_algo_name is required")
	}
	if a.cfg.MaxCandidates <= 0 {
		a.cfg.MaxCandidates = DefaultMaxAttributeCandidates
	}
	return nil
}

// Initialize resolves the attribute-index retriever.
func (a *Attribute) Initialize() error {
	handle, err := a.algos.MakeShared(a.cfg.IndexAlgo, nil)
	if err != nil {
		return fmt.Errorf("attribute: %w", err)
	}
	a.index = handle
	return nil
}

// lookup issues one synchronous attribute-index lookup for a key.
func (a *Attribute) lookup(req *model.SuggestRequest, key string) []*model.Completion {
	subReq := *req
	subReq.NormalizedQuery = key
	subResp := &model.SuggestResponse{}
	a.index.Get().GetCompletions(&subReq, subResp, &model.Context{})
	if !subResp.Success {
		return nil
	}
	return subResp.Completions
}

// GetCompletions walks the first max_attribute_candidates parents of the
// primary response (completions with an empty parent id), fetches their
// attribute lists (falling back to the default-order list), and emits child
// completions with composite ids.
func (a *Attribute) GetCompletions(req *model.SuggestRequest, resp *model.SuggestResponse, ctx *model.Context) int {
	defer ctx.Done()

	if ctx == nil || ctx.CurrentResponse == nil || len(ctx.CurrentResponse.Completions) == 0 {
		return 0
	}

	var defaultOrder []*model.Completion
	defaultOrderLoaded := false

	added := 0
	parents := 0
	for _, parent := range ctx.CurrentResponse.Completions {
		if parent.ParentID != "" {
			continue
		}
		if parents >= a.cfg.MaxCandidates {
			break
		}
		parents++

		children := a.lookup(req, string(parent.SuggestionID))
		if len(children) == 0 {
			if !defaultOrderLoaded {
				defaultOrder = a.lookup(req, DefaultOrderKey)
				defaultOrderLoaded = true
			}
			children = defaultOrder
		}

		for _, child := range children {
			cc := child.Clone()
			cc.ParentID = parent.SuggestionID
			// Multiplicative inheritance from the parent; the
			// denominator stays 1 until a better one is specified.
			cc.Score *= parent.Score
			cc.AlgoType |= model.AlgoAttribute
			rankerEID := model.RankerEIDForChild(cc.Suggestion)
			cc.SuggestionID = model.BuildCompositeID(parent.SuggestionID, cc.SuggestionID, rankerEID)
			cc.AddDebug(fmt.Sprintf("attribute child of %s", parent.SuggestionID))
			resp.Completions = append(resp.Completions, cc)
			added++
		}
	}

	resp.Success = true
	return added
}
