package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/registry"
)

func left() *model.Completion {
	return &model.Completion{SuggestionID: "h1", Score: 10, AlgoType: model.AlgoPrefix}
}

func right() *model.Completion {
	return &model.Completion{SuggestionID: "h1", Score: 4, AlgoType: model.AlgoAltNames}
}

func newOp(t *testing.T, symbol string) *Op {
	t.Helper()
	op := NewOp(symbol)
	require.NoError(t, op.Configure(nil))
	require.NoError(t, op.Initialize())
	return op
}

func TestMergeAdd(t *testing.T) {
	l, r := left(), right()
	newOp(t, OpAdd).Merge(l, r)
	assert.Equal(t, 14.0, l.Score)
	assert.Equal(t, model.AlgoPrefix|model.AlgoAltNames, l.AlgoType)
}

func TestMergeMul(t *testing.T) {
	l, r := left(), right()
	newOp(t, OpMul).Merge(l, r)
	assert.Equal(t, 40.0, l.Score)
	assert.Equal(t, model.AlgoPrefix|model.AlgoAltNames, l.AlgoType)
}

func TestMergeMax(t *testing.T) {
	t.Run("keeps greater left", func(t *testing.T) {
		l, r := left(), right()
		newOp(t, OpMax).Merge(l, r)
		assert.Equal(t, 10.0, l.Score)
		assert.Equal(t, model.AlgoPrefix, l.AlgoType)
	})
	t.Run("replaced by strictly greater right", func(t *testing.T) {
		l, r := left(), right()
		r.Score = 25
		newOp(t, OpMax).Merge(l, r)
		assert.Equal(t, 25.0, l.Score)
		assert.Equal(t, model.AlgoAltNames, l.AlgoType)
	})
	t.Run("equal scores keep left", func(t *testing.T) {
		l, r := left(), right()
		r.Score = l.Score
		newOp(t, OpMax).Merge(l, r)
		assert.Equal(t, model.AlgoPrefix, l.AlgoType)
	})
}

func TestMergeMin(t *testing.T) {
	l, r := left(), right()
	newOp(t, OpMin).Merge(l, r)
	assert.Equal(t, 4.0, l.Score, "right is strictly smaller")
	assert.Equal(t, model.AlgoAltNames, l.AlgoType)
}

func TestMergeAppendsTrace(t *testing.T) {
	l, r := left(), right()
	newOp(t, OpAdd).Merge(l, r)
	require.Len(t, l.DebugInfo, 1)
	assert.Contains(t, l.DebugInfo[0], "merge +")
}

func TestConfigureUnknownSymbol(t *testing.T) {
	assert.Error(t, NewOp("^").Configure(nil))
}

func TestRegisterBindsAllOperators(t *testing.T) {
	reg := registry.New[Merger]("merger")
	require.NoError(t, Register(reg))
	assert.ElementsMatch(t, []string{"+", "*", ">", "<"}, reg.Names())

	for _, symbol := range []string{OpAdd, OpMul, OpMax, OpMin} {
		h, err := reg.MakeShared(symbol, nil)
		require.NoError(t, err)
		h.Release()
	}
}
