package algo

import (
	"encoding/json"

	"github.com/runger/suggestd/internal/model"
)

// Stub is a reserved algorithm variant that always reports failure. The
// template-expansion and fallback hooks stay wired through stubs so enabling
// them later is a configuration change, not a code change.
type Stub struct {
	name string
}

// NewStub creates a named stub.
func NewStub(name string) *Stub {
	return &Stub{name: name}
}

func (s *Stub) Configure(json.RawMessage) error { return nil }

func (s *Stub) Initialize() error { return nil }

// GetCompletions produces nothing and reports failure.
func (s *Stub) GetCompletions(req *model.SuggestRequest, resp *model.SuggestResponse, ctx *model.Context) int {
	defer ctx.Done()
	resp.Success = false
	return 0
}
