package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Daemon.LogLevel)
	assert.Equal(t, 0, cfg.Daemon.IdleTimeoutMins)
	assert.Equal(t, "main", cfg.Manager.PrimaryAlgo)
	assert.Equal(t, "main-twiddler", cfg.Manager.PrimaryTwiddler)
	assert.Equal(t, "identity", cfg.Manager.SecondaryTwiddler)
	assert.Equal(t, []string{"duplicate"}, cfg.Manager.Dedupers)
	assert.Equal(t, 6, cfg.Manager.MaxSuggestionsMultiplier)
	assert.Equal(t, 0.4, cfg.Manager.InstantMinSelectionProb)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
daemon:
  idle_timeout_mins: 15
  log_level: debug
manager:
  primary_algo: main
  secondary_algo: attributes
  threadpool_size: 4
  num_suggestions_web: 8
components:
  - name: main
    kind: algo-group
    options:
      algo_params:
        - id: prefix
          weight: 100
          required: true
  - name: city-falcon
    kind: falcon-sqlite
    options:
      file: /var/lib/suggestd/falcon.db
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Daemon.IdleTimeoutMins)
	assert.Equal(t, "debug", cfg.Daemon.LogLevel)
	assert.Equal(t, "attributes", cfg.Manager.SecondaryAlgo)
	assert.Equal(t, 4, cfg.Manager.ThreadpoolSize)
	assert.Equal(t, 8, cfg.Manager.NumSuggestionsWeb)
	assert.Equal(t, "US", cfg.Manager.DefaultCountry, "unset fields keep their defaults")

	require.Len(t, cfg.Components, 2)
	assert.Equal(t, "algo-group", cfg.Components[0].Kind)

	raw, err := cfg.Components[1].OptionsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"file":"/var/lib/suggestd/falcon.db"}`, string(raw))
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("daemon: [not a map"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestOptionsJSONEmpty(t *testing.T) {
	raw, err := ComponentConfig{Name: "x", Kind: "identity"}.OptionsJSON()
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SUGGESTD_SOCKET_PATH", "/tmp/custom.sock")
	t.Setenv("SUGGESTD_LOG_LEVEL", "warn")
	t.Setenv("SUGGESTD_IDLE_TIMEOUT_MINS", "30")
	t.Setenv("SUGGESTD_THREADPOOL_SIZE", "16")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "/tmp/custom.sock", cfg.Daemon.SocketPath)
	assert.Equal(t, "warn", cfg.Daemon.LogLevel)
	assert.Equal(t, 30, cfg.Daemon.IdleTimeoutMins)
	assert.Equal(t, 16, cfg.Manager.ThreadpoolSize)
}

func TestApplyEnvOverridesIgnoresGarbage(t *testing.T) {
	t.Setenv("SUGGESTD_IDLE_TIMEOUT_MINS", "soon")
	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 0, cfg.Daemon.IdleTimeoutMins)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Daemon.LogLevel = "loud" }},
		{"missing primary", func(c *Config) { c.Manager.PrimaryAlgo = "" }},
		{"negative pool", func(c *Config) { c.Manager.ThreadpoolSize = -1 }},
		{"prob out of range", func(c *Config) { c.Manager.InstantMinSelectionProb = 1.5 }},
		{"unnamed component", func(c *Config) {
			c.Components = []ComponentConfig{{Kind: "identity"}}
		}},
		{"duplicate component", func(c *Config) {
			c.Components = []ComponentConfig{
				{Name: "a", Kind: "identity"},
				{Name: "a", Kind: "duplicate"},
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
