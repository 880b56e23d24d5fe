package falcon

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/runger/suggestd/internal/model"
)

// Memory is an in-process falcon backed by a plain map. It doubles as the
// loader target for JSON snapshot files and as the test fixture store.
type Memory struct {
	file    string
	records map[model.SuggestionID]*model.CompleteSuggestion
}

type memoryConfig struct {
	File string `json:"file"`
}

// NewMemory creates a store over an existing record map. The map is owned by
// the store after the call.
func NewMemory(records map[model.SuggestionID]*model.CompleteSuggestion) *Memory {
	if records == nil {
		records = make(map[model.SuggestionID]*model.CompleteSuggestion)
	}
	return &Memory{records: records}
}

// NewJSONFile creates an empty store that loads a JSON snapshot file
// (an object of suggestion_id -> record) at Initialize.
func NewJSONFile() *Memory {
	return NewMemory(nil)
}

// Configure accepts {"file": path}. A missing file option leaves the store
// over whatever records it was constructed with.
func (m *Memory) Configure(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var cfg memoryConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("falcon memory config: %w", err)
	}
	m.file = cfg.File
	return nil
}

// Initialize loads the snapshot file, if one was configured.
func (m *Memory) Initialize() error {
	if m.file == "" {
		return nil
	}
	data, err := os.ReadFile(m.file)
	if err != nil {
		return fmt.Errorf("falcon snapshot %s: %w", m.file, err)
	}
	records := make(map[model.SuggestionID]*model.CompleteSuggestion)
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("falcon snapshot %s: %w", m.file, err)
	}
	m.records = records
	return nil
}

// Find reports the record for an id.
func (m *Memory) Find(id model.SuggestionID) (*model.CompleteSuggestion, bool) {
	rec, ok := m.records[id]
	return rec, ok
}

// Len returns the number of loaded records.
func (m *Memory) Len() int { return len(m.records) }
