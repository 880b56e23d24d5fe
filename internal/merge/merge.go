// Package merge provides the binary operators that combine two Completion
// records when multiple retrievers produce the same suggestion id.
package merge

import (
	"encoding/json"
	"fmt"

	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/registry"
)

// Merger combines an incoming completion (right) into an existing one
// (left) in place.
type Merger interface {
	registry.Component
	Merge(left, right *model.Completion)
}

// Operator symbols, as written in group configuration.
const (
	OpAdd = "+"
	OpMul = "*"
	OpMax = ">"
	OpMin = "<"
)

// Op is a completion merger for one operator symbol.
type Op struct {
	symbol string
}

// NewOp creates the merger for a symbol. Unknown symbols fail at Configure.
func NewOp(symbol string) *Op {
	return &Op{symbol: symbol}
}

// Configure validates the symbol; mergers take no options.
func (o *Op) Configure(json.RawMessage) error {
	switch o.symbol {
	case OpAdd, OpMul, OpMax, OpMin:
		return nil
	}
	return fmt.Errorf("merge: unknown operator %q", o.symbol)
}

// Initialize is a no-op; mergers are stateless.
func (o *Op) Initialize() error { return nil }

// Merge applies the operator:
//
//	+  left.score += right.score, algo types OR
//	*  left.score *= right.score, algo types OR
//	>  replace left with right iff right.score is strictly greater
//	<  replace left with right iff right.score is strictly smaller
//
// Every merge appends a trace line to the surviving completion.
func (o *Op) Merge(left, right *model.Completion) {
	trace := fmt.Sprintf("merge %s: %.6g %s %.6g", o.symbol, left.Score, o.symbol, right.Score)
	switch o.symbol {
	case OpAdd:
		left.Score += right.Score
		left.AlgoType |= right.AlgoType
	case OpMul:
		left.Score *= right.Score
		left.AlgoType |= right.AlgoType
	case OpMax:
		if left.Score < right.Score {
			*left = *right
		}
	case OpMin:
		if left.Score > right.Score {
			*left = *right
		}
	}
	left.AddDebug(trace)
}

// Register binds all four operators into a merger registry.
func Register(reg *registry.Registry[Merger]) error {
	for _, symbol := range []string{OpAdd, OpMul, OpMax, OpMin} {
		symbol := symbol
		if err := reg.Bind(symbol, nil, func() Merger { return NewOp(symbol) }); err != nil {
			return err
		}
	}
	return nil
}
