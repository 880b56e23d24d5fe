package algo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/suggestd/internal/falcon"
	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/registry"
)

func bowFixture(t *testing.T, cfg string) *BagOfWords {
	t.Helper()
	store := falcon.NewMemory(map[model.SuggestionID]*model.CompleteSuggestion{
		"c/US:ny":    {SrcType: model.SrcCity, Normalized: "new york", Display: "New York"},
		"c/US:nj":    {SrcType: model.SrcCity, Normalized: "new jersey", Display: "New Jersey"},
		"c/FR:paris": {SrcType: model.SrcCity, Normalized: "paris", Display: "Paris"},
	})
	wordIndex := map[string][]model.IndexItem{
		"new": {
			{SuggestionID: "c/US:ny", IndexScore: 1},
			{SuggestionID: "c/US:nj", IndexScore: 1},
			{SuggestionID: "c/FR:paris", IndexScore: 1},
		},
		"york": {
			{SuggestionID: "c/US:ny", IndexScore: 1},
		},
	}

	algos := registry.New[Algorithm]("algorithm")
	word := NewKeyValueWithIndex(model.AlgoPrefix, store, wordIndex)
	require.NoError(t, algos.Bind("words", nil, func() Algorithm { return word }))

	b := NewBagOfWords(algos)
	require.NoError(t, b.Configure(json.RawMessage(cfg)))
	require.NoError(t, b.Initialize())
	return b
}

func TestBagOfWordsBoostOrdering(t *testing.T) {
	b := bowFixture(t, `{"word_suggest_algo_name":"words"}`)
	resp := &model.SuggestResponse{}

	b.GetCompletions(&model.SuggestRequest{NormalizedQuery: "new york", NumSuggestions: 10}, resp, nil)

	require.True(t, resp.Success)
	require.Len(t, resp.Completions, 2, "candidate with no word overlap is dropped")

	exact := resp.Completions[0]
	assert.Equal(t, model.SuggestionID("c/US:ny"), exact.SuggestionID)
	assert.Equal(t, 5.0, exact.Score, "full in-order match earns max boost")
	assert.Equal(t, model.AlgoPrefix|model.AlgoBow, exact.AlgoType)

	partial := resp.Completions[1]
	assert.Equal(t, model.SuggestionID("c/US:nj"), partial.SuggestionID)
	assert.Equal(t, 2.5, partial.Score, "missing word halves the boost here")
}

func TestBagOfWordsTruncation(t *testing.T) {
	b := bowFixture(t, `{"word_suggest_algo_name":"words","max_suggestions_multiplier":1}`)
	resp := &model.SuggestResponse{}

	b.GetCompletions(&model.SuggestRequest{NormalizedQuery: "new york", NumSuggestions: 1}, resp, nil)

	require.Len(t, resp.Completions, 1)
	assert.Equal(t, model.SuggestionID("c/US:ny"), resp.Completions[0].SuggestionID)
}

func TestBagOfWordsEmptyQuery(t *testing.T) {
	b := bowFixture(t, `{"word_suggest_algo_name":"words"}`)
	resp := &model.SuggestResponse{}
	n := b.GetCompletions(&model.SuggestRequest{NormalizedQuery: ""}, resp, nil)
	assert.Equal(t, 0, n)
	assert.False(t, resp.Success)
}

func TestBagOfWordsConfigValidation(t *testing.T) {
	b := NewBagOfWords(registry.New[Algorithm]("algorithm"))
	assert.Error(t, b.Configure(json.RawMessage(`{}`)), "word algorithm name required")

	require.NoError(t, b.Configure(json.RawMessage(`{"word_suggest_algo_name":"nope"}`)))
	assert.Error(t, b.Initialize(), "unknown word algorithm rejected")
}
