package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:3000", c.ServerURL)
	assert.Equal(t, 5*time.Second, c.RequestTimeout)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "url and timeout", args: []string{"cmd", "-a", "http://auth:8080", "-t", "10s"},
			expected: &Config{ServerURL: "http://auth:8080", RequestTimeout: 10 * time.Second}},
		{name: "unknown flags are ignored", args: []string{"cmd", "-x", "1", "-a", "http://auth:8080"},
			expected: &Config{ServerURL: "http://auth:8080"}},
		{name: "bad timeout", args: []string{"cmd", "-t", "abc"}, expectPanic: true},
	}

	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cfg := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}

func TestParseEnv(t *testing.T) {
	t.Setenv("AUTHCLI_SERVER_URL", "http://env:9000")
	t.Setenv("AUTHCLI_REQUEST_TIMEOUT", "2s")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "http://env:9000", cfg.ServerURL)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	path := filepath.Join(dir, "cli.json")
	b, err := json.Marshal(map[string]any{"server_url": "http://file:1", "request_timeout": "7s"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	t.Run("loads from -config", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}
		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "http://file:1", cfg.ServerURL)
		assert.Equal(t, 7*time.Second, cfg.RequestTimeout)
	})

	t.Run("no file keeps values", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{ServerURL: "keep", RequestTimeout: time.Second}
		parseJson(cfg)

		assert.Equal(t, "keep", cfg.ServerURL)
		assert.Equal(t, time.Second, cfg.RequestTimeout)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))
		os.Args = []string{"testbin", "-c", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
