package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:5000", c.ServerURL)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.NotEmpty(t, c.TokenFile)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_url":"http://file:1","timeout":"5s","token_file":"/tmp/tok"}`), 0o600))

	cfg, err := load(env(map[string]string{
		"COMICVAULT_CLIENT_CONFIG": path,
		"COMICVAULT_SERVER":        "http://env:2",
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://env:2", cfg.ServerURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "/tmp/tok", cfg.TokenFile)
}

func TestLoad_Errors(t *testing.T) {
	_, err := load(env(map[string]string{"COMICVAULT_TIMEOUT": "soon"}))
	assert.Error(t, err)

	_, err = load(env(map[string]string{"COMICVAULT_CLIENT_CONFIG": filepath.Join(t.TempDir(), "missing.json")}))
	assert.Error(t, err)
}
