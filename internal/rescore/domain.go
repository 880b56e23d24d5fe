package rescore

import (
	"encoding/json"
	"fmt"

	"github.com/runger/suggestd/internal/model"
)

// DefaultDomainBoost is the promotion factor for same-country candidates.
const DefaultDomainBoost = 3.0

type domainConfig struct {
	Boost float64 `json:"boost,omitempty"`
}

// DomainBoost promotes completions whose suggestion country matches the
// requesting user's country.
type DomainBoost struct {
	cfg domainConfig
}

// NewDomainBoost creates an unconfigured domain booster.
func NewDomainBoost() *DomainBoost {
	return &DomainBoost{}
}

// Configure accepts {"boost": factor}.
func (d *DomainBoost) Configure(raw json.RawMessage) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d.cfg); err != nil {
			return fmt.Errorf("domain boost config: %w", err)
		}
	}
	if d.cfg.Boost <= 0 {
		d.cfg.Boost = DefaultDomainBoost
	}
	return nil
}

func (d *DomainBoost) Initialize() error { return nil }

// GetCompletionScores emits the boost for same-country completions and 1.0
// otherwise.
func (d *DomainBoost) GetCompletionScores(req *model.SuggestRequest, resp *model.SuggestResponse, ctx *model.Context) ([]float64, bool) {
	defer ctx.Done()

	scores := make([]float64, len(resp.Completions))
	for i, c := range resp.Completions {
		scores[i] = 1.0
		if c.Suggestion != nil && c.Suggestion.Country != "" && c.Suggestion.Country == req.UserCountry {
			scores[i] = d.cfg.Boost
		}
	}
	return scores, true
}

// Identity is the neutral rescorer: 1.0 for every completion. It keeps the
// secondary rescorer slot wired when no real twiddler is configured.
type Identity struct{}

// NewIdentity creates the neutral rescorer.
func NewIdentity() *Identity { return &Identity{} }

func (Identity) Configure(json.RawMessage) error { return nil }

func (Identity) Initialize() error { return nil }

// GetCompletionScores emits 1.0 per completion.
func (Identity) GetCompletionScores(req *model.SuggestRequest, resp *model.SuggestResponse, ctx *model.Context) ([]float64, bool) {
	defer ctx.Done()

	scores := make([]float64, len(resp.Completions))
	for i := range scores {
		scores[i] = 1.0
	}
	return scores, true
}
