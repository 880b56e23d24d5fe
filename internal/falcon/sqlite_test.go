package falcon

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/suggestd/internal/model"
)

// newTestDB creates a temp falcon database with two records.
func newTestDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "falcon.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE falcon (
			suggestion_id TEXT PRIMARY KEY,
			src_type      TEXT NOT NULL,
			src_id        TEXT NOT NULL,
			country       TEXT NOT NULL,
			base_score    REAL NOT NULL,
			lat           REAL NOT NULL,
			lon           REAL NOT NULL,
			normalized    TEXT NOT NULL,
			display       TEXT NOT NULL,
			annotations   TEXT,
			freq          REAL NOT NULL
		)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO falcon VALUES
		('c/US:1', 'city', '1', 'US', 95.5, 37.77, -122.42, 'san francisco', 'San Francisco', '["CA","US"]', 1200),
		('h/GB:2', 'hotel', '2', 'GB', 40, 51.5, -0.12, 'hotel two', 'Hotel Two', NULL, 55)
	`)
	require.NoError(t, err)
	return path
}

func TestSQLiteLoad(t *testing.T) {
	path := newTestDB(t)

	s := NewSQLite()
	require.NoError(t, s.Configure(json.RawMessage(`{"file":"`+path+`"}`)))
	require.NoError(t, s.Initialize())

	assert.Equal(t, 2, s.Len())

	rec, ok := s.Find("c/US:1")
	require.True(t, ok)
	assert.Equal(t, model.SrcCity, rec.SrcType)
	assert.Equal(t, "US", rec.Country)
	assert.Equal(t, 95.5, rec.BaseScore)
	assert.Equal(t, []string{"CA", "US"}, rec.Annotations)

	rec, ok = s.Find("h/GB:2")
	require.True(t, ok)
	assert.Empty(t, rec.Annotations)

	_, ok = s.Find("missing")
	assert.False(t, ok)
}

func TestSQLiteConfigureRequiresFile(t *testing.T) {
	s := NewSQLite()
	assert.Error(t, s.Configure(json.RawMessage(`{}`)))
}
