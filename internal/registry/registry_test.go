package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fake is a minimal component recording its lifecycle.
type fake struct {
	cfg          json.RawMessage
	configureErr error
	initErr      error
	initialized  bool
}

func (f *fake) Configure(raw json.RawMessage) error {
	f.cfg = raw
	return f.configureErr
}

func (f *fake) Initialize() error {
	if f.initErr != nil {
		return f.initErr
	}
	f.initialized = true
	return nil
}

func TestRegistryBindAndResolve(t *testing.T) {
	reg := New[*fake]("test")
	require.NoError(t, reg.Bind("a", json.RawMessage(`{"x":1}`), func() *fake { return &fake{} }))

	h, err := reg.MakeShared("a", nil)
	require.NoError(t, err)
	defer h.Release()

	assert.True(t, h.Get().initialized)
	assert.JSONEq(t, `{"x":1}`, string(h.Get().cfg))
}

func TestRegistryUnknownName(t *testing.T) {
	reg := New[*fake]("test")
	_, err := reg.MakeShared("missing", nil)
	assert.ErrorIs(t, err, ErrNotBound)
}

func TestRegistryDuplicateBind(t *testing.T) {
	reg := New[*fake]("test")
	require.NoError(t, reg.Bind("a", nil, func() *fake { return &fake{} }))
	assert.ErrorIs(t, reg.Bind("a", nil, func() *fake { return &fake{} }), ErrAlreadyBound)
}

func TestRegistrySharing(t *testing.T) {
	var constructions atomic.Int64
	reg := New[*fake]("test")
	require.NoError(t, reg.Bind("a", nil, func() *fake {
		constructions.Add(1)
		return &fake{}
	}))

	h1, err := reg.MakeShared("a", nil)
	require.NoError(t, err)
	h2, err := reg.MakeShared("a", nil)
	require.NoError(t, err)

	assert.Same(t, h1.Get(), h2.Get(), "identical params share one instance")
	assert.Equal(t, int64(1), constructions.Load())

	h1.Release()
	h2.Release()

	// With no refs left the instance is gone; resolving constructs anew.
	h3, err := reg.MakeShared("a", nil)
	require.NoError(t, err)
	defer h3.Release()
	assert.Equal(t, int64(2), constructions.Load())
}

func TestRegistryDistinctParamsDistinctInstances(t *testing.T) {
	reg := New[*fake]("test")
	require.NoError(t, reg.Bind("a", json.RawMessage(`{"x":1}`), func() *fake { return &fake{} }))

	h1, err := reg.MakeShared("a", nil)
	require.NoError(t, err)
	defer h1.Release()
	h2, err := reg.MakeShared("a", map[string]any{"x": 2})
	require.NoError(t, err)
	defer h2.Release()

	assert.NotSame(t, h1.Get(), h2.Get())
	assert.JSONEq(t, `{"x":2}`, string(h2.Get().cfg))
}

func TestRegistryOverridesMergeOntoDefaults(t *testing.T) {
	reg := New[*fake]("test")
	require.NoError(t, reg.Bind("a", json.RawMessage(`{"x":1,"y":2}`), func() *fake { return &fake{} }))

	h, err := reg.MakeShared("a", map[string]any{"y": 9})
	require.NoError(t, err)
	defer h.Release()
	assert.JSONEq(t, `{"x":1,"y":9}`, string(h.Get().cfg))
}

func TestRegistryPinSurvivesRelease(t *testing.T) {
	var constructions atomic.Int64
	reg := New[*fake]("test")
	require.NoError(t, reg.Bind("a", nil, func() *fake {
		constructions.Add(1)
		return &fake{}
	}))

	h, err := reg.MakeShared("a", nil)
	require.NoError(t, err)
	h.Pin()
	h.Release()

	h2, err := reg.MakeShared("a", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), constructions.Load(), "pinned instance is reused")

	h2.Release()
	h.Unpin()

	h3, err := reg.MakeShared("a", nil)
	require.NoError(t, err)
	defer h3.Release()
	assert.Equal(t, int64(2), constructions.Load(), "unpinned instance was evicted")
}

func TestRegistryConstructionFailure(t *testing.T) {
	attempts := 0
	reg := New[*fake]("test")
	require.NoError(t, reg.Bind("a", nil, func() *fake {
		attempts++
		if attempts == 1 {
			return &fake{initErr: errors.New("index load failed")}
		}
		return &fake{}
	}))

	_, err := reg.MakeShared("a", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index load failed")

	// The failed instance was discarded; the next resolution retries.
	h, err := reg.MakeShared("a", nil)
	require.NoError(t, err)
	defer h.Release()
	assert.True(t, h.Get().initialized)
}

func TestRegistryAlias(t *testing.T) {
	reg := New[*fake]("test")
	require.NoError(t, reg.Bind("a", nil, func() *fake { return &fake{} }))
	require.NoError(t, reg.Alias("b", "a"))

	ha, err := reg.MakeShared("a", nil)
	require.NoError(t, err)
	defer ha.Release()
	hb, err := reg.MakeShared("b", nil)
	require.NoError(t, err)
	defer hb.Release()

	assert.Same(t, ha.Get(), hb.Get())
	assert.ErrorIs(t, reg.Alias("c", "nope"), ErrNotBound)
	assert.ErrorIs(t, reg.Alias("a", "b"), ErrAlreadyBound)
}

func TestRegistryConcurrentResolve(t *testing.T) {
	var constructions atomic.Int64
	reg := New[*fake]("test")
	require.NoError(t, reg.Bind("a", nil, func() *fake {
		constructions.Add(1)
		return &fake{}
	}))

	const n = 32
	handles := make([]*Handle[*fake], n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			h, err := reg.MakeShared("a", nil)
			if err != nil {
				panic(fmt.Sprintf("resolve: %v", err))
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), constructions.Load())
	for _, h := range handles {
		assert.Same(t, handles[0].Get(), h.Get())
		h.Release()
	}
}

func TestRegistryNames(t *testing.T) {
	reg := New[*fake]("test")
	require.NoError(t, reg.Bind("b", nil, func() *fake { return &fake{} }))
	require.NoError(t, reg.Bind("a", nil, func() *fake { return &fake{} }))
	assert.Equal(t, []string{"a", "b"}, reg.Names())
}
