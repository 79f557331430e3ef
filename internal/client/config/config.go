package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the comicvault CLI.
type Config struct {
	ServerURL string
	Timeout   time.Duration
	// TokenFile is where the session token is kept between invocations.
	TokenFile string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:5000"
	c.Timeout = 30 * time.Second
	if dir, err := os.UserConfigDir(); err == nil {
		c.TokenFile = filepath.Join(dir, "comicvault", "session")
	} else {
		c.TokenFile = ".comicvault-session"
	}
}

// LoadConfig applies defaults, then the JSON file named by
// COMICVAULT_CLIENT_CONFIG, then COMICVAULT_* variables. Command-line flags
// are applied by the CLI on top of the result.
func LoadConfig() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := getenv("COMICVAULT_CLIENT_CONFIG"); path != "" {
		if err := parseJson(cfg, path); err != nil {
			return nil, err
		}
	}

	if v := getenv("COMICVAULT_SERVER"); v != "" {
		cfg.ServerURL = v
	}
	if v := getenv("COMICVAULT_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
	if v := getenv("COMICVAULT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, err
		}
		cfg.Timeout = d
	}
	return cfg, nil
}
