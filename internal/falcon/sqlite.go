package falcon

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/runger/suggestd/internal/model"
)

// SQLite is a falcon loaded from a SQLite file at init. The whole falcon
// table is read into memory once; the connection does not outlive
// Initialize.
//
// Expected schema:
//
//	CREATE TABLE falcon (
//		suggestion_id TEXT PRIMARY KEY,
//		src_type      TEXT NOT NULL,
//		src_id        TEXT NOT NULL,
//		country       TEXT NOT NULL,
//		base_score    REAL NOT NULL,
//		lat           REAL NOT NULL,
//		lon           REAL NOT NULL,
//		normalized    TEXT NOT NULL,
//		display       TEXT NOT NULL,
//		annotations   TEXT,            -- JSON array of qualifier strings
//		freq          REAL NOT NULL
//	);
type SQLite struct {
	file    string
	records map[model.SuggestionID]*model.CompleteSuggestion
}

type sqliteConfig struct {
	File string `json:"file"`
}

// NewSQLite creates an unloaded SQLite falcon.
func NewSQLite() *SQLite {
	return &SQLite{records: make(map[model.SuggestionID]*model.CompleteSuggestion)}
}

// Configure accepts {"file": path}.
func (s *SQLite) Configure(raw json.RawMessage) error {
	var cfg sqliteConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("falcon sqlite config: %w", err)
	}
	if cfg.File == "" {
		return fmt.Errorf("falcon sqlite config: file is required")
	}
	s.file = cfg.File
	return nil
}

// Initialize opens the database read-only and loads every record.
func (s *SQLite) Initialize() error {
	db, err := sql.Open("sqlite", s.file+"?mode=ro")
	if err != nil {
		return fmt.Errorf("falcon sqlite %s: %w", s.file, err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT suggestion_id, src_type, src_id, country, base_score,
		       lat, lon, normalized, display, annotations, freq
		FROM falcon
	`)
	if err != nil {
		return fmt.Errorf("falcon sqlite %s: %w", s.file, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          string
			srcType     string
			annotations sql.NullString
			rec         model.CompleteSuggestion
		)
		if err := rows.Scan(&id, &srcType, &rec.SrcID, &rec.Country, &rec.BaseScore,
			&rec.Latitude, &rec.Longitude, &rec.Normalized, &rec.Display,
			&annotations, &rec.Freq); err != nil {
			return fmt.Errorf("falcon sqlite %s: scan: %w", s.file, err)
		}
		rec.SrcType = model.ParseSrcType(srcType)
		if annotations.Valid && annotations.String != "" {
			if err := json.Unmarshal([]byte(annotations.String), &rec.Annotations); err != nil {
				return fmt.Errorf("falcon sqlite %s: annotations for %s: %w", s.file, id, err)
			}
		}
		recCopy := rec
		s.records[model.SuggestionID(id)] = &recCopy
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("falcon sqlite %s: %w", s.file, err)
	}
	return nil
}

// Find reports the record for an id.
func (s *SQLite) Find(id model.SuggestionID) (*model.CompleteSuggestion, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of loaded records.
func (s *SQLite) Len() int { return len(s.records) }
