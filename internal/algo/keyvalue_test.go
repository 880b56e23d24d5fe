package algo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/suggestd/internal/falcon"
	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/pool"
)

func kvFixture() *KeyValue {
	store := falcon.NewMemory(map[model.SuggestionID]*model.CompleteSuggestion{
		"c/US:1": {SrcType: model.SrcCity, Country: "US", BaseScore: 80, Normalized: "san francisco", Display: "San Francisco", Freq: 1200},
		"h/US:2": {SrcType: model.SrcHotel, Country: "US", BaseScore: 40, Normalized: "san remo hotel", Display: "San Remo Hotel", Freq: 50},
	})
	index := map[string][]model.IndexItem{
		"san fr": {
			{SuggestionID: "c/US:1", IndexScore: 100},
			{SuggestionID: "h/US:2"},
		},
		"ghost": {
			{SuggestionID: "x/gone", IndexScore: 5},
		},
	}
	return NewKeyValueWithIndex(model.AlgoPrefix, store, index)
}

func TestKeyValueLookup(t *testing.T) {
	kv := kvFixture()
	resp := &model.SuggestResponse{}
	req := &model.SuggestRequest{NormalizedQuery: "san fr"}

	n := kv.GetCompletions(req, resp, nil)

	assert.Equal(t, 2, n)
	assert.True(t, resp.Success)
	require.Len(t, resp.Completions, 2)

	first := resp.Completions[0]
	assert.Equal(t, model.SuggestionID("c/US:1"), first.SuggestionID)
	assert.Equal(t, 100.0, first.Score)
	assert.Equal(t, model.AlgoPrefix, first.AlgoType)
	assert.Equal(t, "San Francisco", first.Suggestion.Display)

	// An unset index score falls back to the record's base score.
	assert.Equal(t, 40.0, resp.Completions[1].Score)
}

func TestKeyValueMissingKeySucceedsEmpty(t *testing.T) {
	kv := kvFixture()
	resp := &model.SuggestResponse{}

	n := kv.GetCompletions(&model.SuggestRequest{NormalizedQuery: "nothing here"}, resp, nil)

	assert.Equal(t, 0, n)
	assert.True(t, resp.Success, "an empty result is still a valid result")
	assert.Empty(t, resp.Completions)
}

func TestKeyValueDropsFalconMisses(t *testing.T) {
	kv := kvFixture()
	resp := &model.SuggestResponse{}

	n := kv.GetCompletions(&model.SuggestRequest{NormalizedQuery: "ghost"}, resp, nil)

	assert.Equal(t, 0, n)
	assert.Empty(t, resp.Completions)
}

func TestKeyValueNotifiesContext(t *testing.T) {
	kv := kvFixture()
	latch := pool.NewLatch(1)
	ctx := &model.Context{Latch: latch}

	kv.GetCompletions(&model.SuggestRequest{NormalizedQuery: "san fr"}, &model.SuggestResponse{}, ctx)
	assert.Equal(t, 0, latch.Count())
}

func TestKeyValueConfigValidation(t *testing.T) {
	kv := NewKeyValue(nil)
	assert.Error(t, kv.Configure([]byte(`{"type":1}`)), "falcon is required")
	assert.Error(t, kv.Configure([]byte(`{"type":1,"falcon":"main"}`)), "file is required")
}
