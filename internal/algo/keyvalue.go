package algo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/runger/suggestd/internal/falcon"
	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/registry"
)

// KeyValue retrieves completions by exact lookup of the normalized query in
// an in-memory key -> index-item map loaded at init. Prefix and
// alternate-names retrievers are KeyValue instances bound with different
// index files and algo-type bits.
type KeyValue struct {
	falcons *registry.Registry[falcon.Store]

	cfg          keyValueConfig
	falconHandle *registry.Handle[falcon.Store]
	index        map[string][]model.IndexItem

	// testStore bypasses registry resolution; only NewKeyValueWithIndex
	// sets it.
	testStore falcon.Store
}

type keyValueConfig struct {
	Type   int    `json:"type"`   // algo-type bit recorded on produced completions
	Falcon string `json:"falcon"` // falcon name resolved through the falcon registry
	File   string `json:"file"`   // index file (.json snapshot or sqlite database)
}

// NewKeyValue creates a retriever that resolves its falcon by name through
// the given registry at Initialize.
func NewKeyValue(falcons *registry.Registry[falcon.Store]) *KeyValue {
	return &KeyValue{falcons: falcons}
}

// NewKeyValueWithIndex builds a fully initialized retriever over an in-memory
// index and an already-resolved falcon. Test fixture constructor.
func NewKeyValueWithIndex(algoType model.AlgoType, store falcon.Store, index map[string][]model.IndexItem) *KeyValue {
	return &KeyValue{
		cfg:       keyValueConfig{Type: int(algoType)},
		index:     index,
		testStore: store,
	}
}

// Configure accepts {"type": bit, "falcon": name, "file": path}.
func (kv *KeyValue) Configure(raw json.RawMessage) error {
	if kv.testStore != nil {
		return nil
	}
	if err := json.Unmarshal(raw, &kv.cfg); err != nil {
		return fmt.Errorf("keyvalue config: %w", err)
	}
	if kv.cfg.Falcon == "" {
		return fmt.Errorf("keyvalue config: falcon is required")
	}
	if kv.cfg.File == "" {
		return fmt.Errorf("keyvalue config: file is required")
	}
	return nil
}

// Initialize resolves the falcon and loads the index file.
func (kv *KeyValue) Initialize() error {
	if kv.testStore != nil {
		return nil
	}
	handle, err := kv.falcons.MakeShared(kv.cfg.Falcon, nil)
	if err != nil {
		return fmt.Errorf("keyvalue: %w", err)
	}
	kv.falconHandle = handle

	index, err := loadIndex(kv.cfg.File)
	if err != nil {
		kv.falconHandle.Release()
		kv.falconHandle = nil
		return fmt.Errorf("keyvalue: %w", err)
	}
	kv.index = index
	return nil
}

// store returns the falcon backing this retriever.
func (kv *KeyValue) store() falcon.Store {
	if kv.testStore != nil {
		return kv.testStore
	}
	return kv.falconHandle.Get()
}

// GetCompletions looks the normalized query up verbatim. Each index item
// becomes a Completion carrying the configured algo-type bit and the item's
// index score; the falcon then resolves full records and fills zero scores
// from base scores.
func (kv *KeyValue) GetCompletions(req *model.SuggestRequest, resp *model.SuggestResponse, ctx *model.Context) int {
	defer ctx.Done()

	for _, item := range kv.index[req.NormalizedQuery] {
		resp.Completions = append(resp.Completions, &model.Completion{
			SuggestionID: item.SuggestionID,
			IndexScore:   item.IndexScore,
			Score:        item.IndexScore,
			AlgoType:     model.AlgoType(kv.cfg.Type),
		})
	}
	falcon.AddCompleteSuggestions(kv.store(), resp, nil)
	resp.Success = true
	return len(resp.Completions)
}

// loadIndex reads an index file. A .json extension selects the JSON snapshot
// format (object of key -> item list); anything else is read as a SQLite
// database with a kv_index(key, suggestion_id, index_score) table.
func loadIndex(file string) (map[string][]model.IndexItem, error) {
	if strings.HasSuffix(file, ".json") {
		return loadJSONIndex(file)
	}
	return loadSQLiteIndex(file)
}

func loadJSONIndex(file string) (map[string][]model.IndexItem, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", file, err)
	}
	index := make(map[string][]model.IndexItem)
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("index %s: %w", file, err)
	}
	return index, nil
}

func loadSQLiteIndex(file string) (map[string][]model.IndexItem, error) {
	db, err := sql.Open("sqlite", file+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", file, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT key, suggestion_id, index_score FROM kv_index`)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", file, err)
	}
	defer rows.Close()

	index := make(map[string][]model.IndexItem)
	for rows.Next() {
		var (
			key  string
			item model.IndexItem
			id   string
		)
		if err := rows.Scan(&key, &id, &item.IndexScore); err != nil {
			return nil, fmt.Errorf("index %s: scan: %w", file, err)
		}
		item.SuggestionID = model.SuggestionID(id)
		index[key] = append(index[key], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index %s: %w", file, err)
	}
	return index, nil
}
