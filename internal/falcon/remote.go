package falcon

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/runger/suggestd/internal/metrics"
	"github.com/runger/suggestd/internal/model"
)

// Remote is a read-through falcon client for a falcon served over HTTP by
// another replica (GET {base_url}/v1/falcon/{id}). A circuit breaker opens
// after consecutive failures; while open, lookups degrade to misses so the
// caller's response stays best-effort.
type Remote struct {
	cfg     remoteConfig
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

type remoteConfig struct {
	BaseURL            string `json:"base_url"`
	TimeoutMs          int    `json:"timeout_ms"`
	BreakerMaxFailures int    `json:"breaker_max_failures"`
	BreakerOpenMs      int    `json:"breaker_open_ms"`
}

// NewRemote creates an unconfigured remote falcon.
func NewRemote(logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{logger: logger}
}

// Configure accepts {"base_url", "timeout_ms", "breaker_max_failures",
// "breaker_open_ms"}.
func (r *Remote) Configure(raw json.RawMessage) error {
	if err := json.Unmarshal(raw, &r.cfg); err != nil {
		return fmt.Errorf("falcon remote config: %w", err)
	}
	if r.cfg.BaseURL == "" {
		return fmt.Errorf("falcon remote config: base_url is required")
	}
	if r.cfg.TimeoutMs <= 0 {
		r.cfg.TimeoutMs = 50
	}
	if r.cfg.BreakerMaxFailures <= 0 {
		r.cfg.BreakerMaxFailures = 5
	}
	if r.cfg.BreakerOpenMs <= 0 {
		r.cfg.BreakerOpenMs = 5000
	}
	return nil
}

// Initialize builds the HTTP client and breaker.
func (r *Remote) Initialize() error {
	r.client = resty.New().
		SetBaseURL(r.cfg.BaseURL).
		SetTimeout(time.Duration(r.cfg.TimeoutMs) * time.Millisecond)

	maxFailures := uint32(r.cfg.BreakerMaxFailures)
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "falcon-remote",
		Timeout: time.Duration(r.cfg.BreakerOpenMs) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("falcon remote breaker state change",
				"from", from.String(), "to", to.String())
		},
	})
	return nil
}

// Find looks the record up on the remote replica. Any transport error,
// non-404 error status, or open breaker reads as a miss.
func (r *Remote) Find(id model.SuggestionID) (*model.CompleteSuggestion, bool) {
	res, err := r.breaker.Execute(func() (interface{}, error) {
		var rec model.CompleteSuggestion
		resp, err := r.client.R().
			SetResult(&rec).
			Get("/v1/falcon/" + url.PathEscape(string(id)))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() == http.StatusNotFound {
			// A clean miss is not a backend failure.
			return nil, nil
		}
		if resp.IsError() {
			return nil, fmt.Errorf("falcon remote: status %d", resp.StatusCode())
		}
		return &rec, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.Global.RemoteBreakerOpn.Add(1)
		} else {
			r.logger.Debug("falcon remote lookup failed", "id", string(id), "error", err)
		}
		return nil, false
	}
	if res == nil {
		return nil, false
	}
	return res.(*model.CompleteSuggestion), true
}
