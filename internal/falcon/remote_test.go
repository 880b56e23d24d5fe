package falcon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/suggestd/internal/model"
)

func newRemote(t *testing.T, cfg string) *Remote {
	t.Helper()
	r := NewRemote(nil)
	require.NoError(t, r.Configure(json.RawMessage(cfg)))
	require.NoError(t, r.Initialize())
	return r
}

func TestRemoteFind(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		switch req.URL.Path {
		case "/v1/falcon/c/US:1":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(model.CompleteSuggestion{
				SrcType: model.SrcCity, Country: "US",
				Display: "San Francisco", BaseScore: 80,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r := newRemote(t, `{"base_url":"`+srv.URL+`","timeout_ms":1000}`)

	rec, ok := r.Find("c/US:1")
	require.True(t, ok)
	assert.Equal(t, "San Francisco", rec.Display)
	assert.Equal(t, model.SrcCity, rec.SrcType)

	_, ok = r.Find("c/US:404")
	assert.False(t, ok, "a 404 is a clean miss")
	assert.Equal(t, int64(2), hits.Load())
}

func TestRemoteBreakerOpensOnFailures(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := newRemote(t, `{"base_url":"`+srv.URL+`","timeout_ms":1000,
		"breaker_max_failures":2,"breaker_open_ms":60000}`)

	_, ok := r.Find("x/1")
	assert.False(t, ok)
	_, ok = r.Find("x/2")
	assert.False(t, ok)

	// The breaker is open now; further lookups miss without touching the
	// backend.
	before := hits.Load()
	_, ok = r.Find("x/3")
	assert.False(t, ok)
	assert.Equal(t, before, hits.Load())
}

func TestRemoteConfigValidation(t *testing.T) {
	r := NewRemote(nil)
	assert.Error(t, r.Configure(json.RawMessage(`{}`)), "base_url required")
}
