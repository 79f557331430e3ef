// Package config handles configuration for the server component: defaults,
// then .env and COMICVAULT_* environment variables, then a JSON or YAML
// file, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds runtime settings for the comicvault server.
//
// Secrets (SecretKey, PaystackSecretKey, SMTPPassword) have no defaults and
// must come from the environment, a config file or flags.
type Config struct {
	HTTPAddr      string
	GRPCAddr      string
	PublicBaseURL string

	StorageBackend string // memory | postgres
	DatabaseDSN    string

	BlobBackend    string // local | s3
	AssetDir       string
	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	GrantURLTTL    time.Duration

	SecretKey       string
	SessionTTL      time.Duration
	LoginIdentifier string // username | email

	PaystackBaseURL    string
	PaystackSecretKey  string
	GatewayTimeout     time.Duration
	MinorUnitsPerMajor int64

	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	MailFrom        string
	NotifyWorkers   int
	NotifyQueueSize int

	RateLimitRPS         float64
	RateLimitBurst       int
	SessionPurgeSchedule string
	CORSAllowedOrigins   []string
	LogLevel             string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":5000"
	c.GRPCAddr = ":50051"
	c.PublicBaseURL = "http://127.0.0.1:5000"
	c.StorageBackend = "memory"
	c.DatabaseDSN = ""
	c.BlobBackend = BlobBackendLocal
	c.AssetDir = "uploads"
	c.S3Bucket = "comicvault"
	c.S3Region = "us-east-1"
	c.GrantURLTTL = 5 * time.Minute
	c.SessionTTL = 24 * time.Hour
	c.LoginIdentifier = LoginByUsername
	c.PaystackBaseURL = "https://api.paystack.co"
	c.GatewayTimeout = 10 * time.Second
	c.MinorUnitsPerMajor = 100
	c.SMTPPort = 587
	c.NotifyWorkers = 2
	c.NotifyQueueSize = 128
	c.RateLimitRPS = 1
	c.RateLimitBurst = 5
	c.SessionPurgeSchedule = "@every 10m"
	c.CORSAllowedOrigins = []string{"*"}
	c.LogLevel = "info"
}

const (
	LoginByUsername = "username"
	LoginByEmail    = "email"

	BlobBackendLocal = "local"
	BlobBackendS3    = "s3"
)

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.PaystackSecretKey == "" {
		errs = append(errs, errors.New("paystack secret key is required"))
	}
	switch c.StorageBackend {
	case "memory":
	case "postgres":
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("database dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	switch c.BlobBackend {
	case BlobBackendLocal, BlobBackendS3:
	default:
		errs = append(errs, fmt.Errorf("unknown blob backend %q", c.BlobBackend))
	}
	switch c.LoginIdentifier {
	case LoginByUsername, LoginByEmail:
	default:
		errs = append(errs, fmt.Errorf("login identifier must be %q or %q", LoginByUsername, LoginByEmail))
	}
	if c.MinorUnitsPerMajor <= 0 {
		errs = append(errs, errors.New("minor units per major must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel to a slog level; unknown values are info.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// MailEnabled reports whether SMTP delivery is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.MailFrom != ""
}

// Load builds a Config from args (without the program name).
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return cfg, nil
}

// LoadConfig is Load over os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
