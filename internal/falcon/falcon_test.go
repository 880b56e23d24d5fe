package falcon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/pool"
)

func testRecords() map[model.SuggestionID]*model.CompleteSuggestion {
	return map[model.SuggestionID]*model.CompleteSuggestion{
		"c/US:1": {SrcType: model.SrcCity, SrcID: "1", Country: "US", BaseScore: 80, Display: "San Francisco", Freq: 1000},
		"h/US:2": {SrcType: model.SrcHotel, SrcID: "2", Country: "US", BaseScore: 40, Display: "Hotel Two", Freq: 50},
	}
}

func TestAddCompleteSuggestions_Resolves(t *testing.T) {
	store := NewMemory(testRecords())
	resp := &model.SuggestResponse{Completions: []*model.Completion{
		{SuggestionID: "c/US:1", Score: 12},
		{SuggestionID: "h/US:2", Score: 7},
	}}

	AddCompleteSuggestions(store, resp, nil)

	require.Len(t, resp.Completions, 2)
	assert.Equal(t, "San Francisco", resp.Completions[0].Suggestion.Display)
	assert.Equal(t, 12.0, resp.Completions[0].Score, "non-zero scores are preserved")
}

func TestAddCompleteSuggestions_DropsMisses(t *testing.T) {
	store := NewMemory(testRecords())
	resp := &model.SuggestResponse{Completions: []*model.Completion{
		{SuggestionID: "c/US:1"},
		{SuggestionID: "x/unknown"},
		{SuggestionID: "h/US:2"},
	}}

	AddCompleteSuggestions(store, resp, nil)

	require.Len(t, resp.Completions, 2)
	assert.Equal(t, model.SuggestionID("c/US:1"), resp.Completions[0].SuggestionID)
	assert.Equal(t, model.SuggestionID("h/US:2"), resp.Completions[1].SuggestionID)
}

func TestAddCompleteSuggestions_ZeroScoreFromBase(t *testing.T) {
	store := NewMemory(testRecords())
	resp := &model.SuggestResponse{Completions: []*model.Completion{
		{SuggestionID: "c/US:1", Score: 0},
	}}

	AddCompleteSuggestions(store, resp, nil)

	require.Len(t, resp.Completions, 1)
	assert.Equal(t, 80.0, resp.Completions[0].Score)
}

func TestAddCompleteSuggestions_NotifiesLatch(t *testing.T) {
	store := NewMemory(testRecords())
	latch := pool.NewLatch(1)

	AddCompleteSuggestions(store, &model.SuggestResponse{}, latch)
	assert.Equal(t, 0, latch.Count())
}

func TestAddCompleteSuggestions_KeepsResolvedRecords(t *testing.T) {
	store := NewMemory(nil)
	already := &model.CompleteSuggestion{Display: "Prefilled", BaseScore: 3}
	resp := &model.SuggestResponse{Completions: []*model.Completion{
		{SuggestionID: "whatever", Suggestion: already},
	}}

	AddCompleteSuggestions(store, resp, nil)

	require.Len(t, resp.Completions, 1, "a completion with a record is never a miss")
	assert.Equal(t, 3.0, resp.Completions[0].Score)
}

func TestMemoryJSONSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "falcon.json")
	data, err := json.Marshal(testRecords())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	m := NewJSONFile()
	require.NoError(t, m.Configure(json.RawMessage(`{"file":"`+path+`"}`)))
	require.NoError(t, m.Initialize())

	assert.Equal(t, 2, m.Len())
	rec, ok := m.Find("c/US:1")
	require.True(t, ok)
	assert.Equal(t, "San Francisco", rec.Display)

	_, ok = m.Find("missing")
	assert.False(t, ok)
}

func TestMemoryJSONSnapshot_MissingFile(t *testing.T) {
	m := NewJSONFile()
	require.NoError(t, m.Configure(json.RawMessage(`{"file":"/does/not/exist.json"}`)))
	assert.Error(t, m.Initialize())
}
