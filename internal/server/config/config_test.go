package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":5000", c.HTTPAddr)
	assert.Equal(t, ":50051", c.GRPCAddr)
	assert.Equal(t, "memory", c.StorageBackend)
	assert.Equal(t, "local", c.BlobBackend)
	assert.Equal(t, 24*time.Hour, c.SessionTTL)
	assert.EqualValues(t, 100, c.MinorUnitsPerMajor)
	assert.Equal(t, LoginByUsername, c.LoginIdentifier)
	// no secret ships as a default
	assert.Empty(t, c.SecretKey)
	assert.Empty(t, c.PaystackSecretKey)
	assert.Empty(t, c.SMTPPassword)
}

func TestValidate(t *testing.T) {
	var c Config
	c.LoadDefaults()

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret key is required")
	assert.Contains(t, err.Error(), "paystack secret key is required")

	c.SecretKey = "k"
	c.PaystackSecretKey = "sk"
	require.NoError(t, c.Validate())

	c.StorageBackend = "postgres"
	assert.ErrorContains(t, c.Validate(), "database dsn is required")

	c.StorageBackend = "memory"
	c.LoginIdentifier = "phone"
	assert.ErrorContains(t, c.Validate(), "login identifier")
}

func TestSlogLevel(t *testing.T) {
	c := Config{LogLevel: "debug"}
	assert.Equal(t, slog.LevelDebug, c.SlogLevel())
	c.LogLevel = "nonsense"
	assert.Equal(t, slog.LevelInfo, c.SlogLevel())
}

func TestLoad_Layering(t *testing.T) {
	dir := t.TempDir()

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("COMICVAULT_PAYSTACK_SECRET_KEY=sk_from_dotenv\nCOMICVAULT_HTTP_ADDR=:7000\n"), 0o600))

	cfgFile := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("http_addr: \":8000\"\nsession_ttl: 2h\npublic_base_url: http://shop.local/\n"), 0o600))

	t.Setenv("COMICVAULT_SECRET_KEY", "from-env")
	t.Setenv("COMICVAULT_GATEWAY_TIMEOUT", "3s")
	t.Setenv("COMICVAULT_CORS_ALLOWED_ORIGINS", "http://a, http://b")
	t.Cleanup(func() {
		os.Unsetenv("COMICVAULT_PAYSTACK_SECRET_KEY")
		os.Unsetenv("COMICVAULT_HTTP_ADDR")
	})

	c, err := Load([]string{"-env", envFile, "-c", cfgFile, "-a", ":9000", "-login-by", "EMAIL", "unrelated"})
	require.NoError(t, err)

	assert.Equal(t, "sk_from_dotenv", c.PaystackSecretKey)
	assert.Equal(t, "from-env", c.SecretKey)
	assert.Equal(t, 3*time.Second, c.GatewayTimeout)
	assert.Equal(t, []string{"http://a", "http://b"}, c.CORSAllowedOrigins)
	// file overrides env, flag overrides file
	assert.Equal(t, ":9000", c.HTTPAddr)
	assert.Equal(t, 2*time.Hour, c.SessionTTL)
	assert.Equal(t, "http://shop.local", c.PublicBaseURL)
	assert.Equal(t, LoginByEmail, c.LoginIdentifier)
	// untouched keys keep defaults
	assert.Equal(t, ":50051", c.GRPCAddr)
}

func TestLoad_JSONFileAndSessionFlag(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "server.json")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`{"storage_backend":"postgres","database_dsn":"postgres://x","session_ttl":"1h"}`), 0o600))

	c, err := Load([]string{"-config", cfgFile, "-t", "30"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", c.StorageBackend)
	assert.Equal(t, "postgres://x", c.DatabaseDSN)
	assert.Equal(t, 30*time.Minute, c.SessionTTL)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorContains(t, err, "read config file")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	_, err = Load([]string{"-c", bad})
	assert.ErrorContains(t, err, "parse config file")

	t.Setenv("COMICVAULT_SESSION_TTL", "forever")
	_, err = Load(nil)
	assert.ErrorContains(t, err, "COMICVAULT_SESSION_TTL")
}
