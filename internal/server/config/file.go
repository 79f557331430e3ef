package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/comicvault/internal/flagx"
	"github.com/dmitrijs2005/comicvault/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Durations accept
// "15m" style strings or integer nanoseconds.
type FileConfig struct {
	HTTPAddr             string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr             string         `json:"grpc_addr" yaml:"grpc_addr"`
	PublicBaseURL        string         `json:"public_base_url" yaml:"public_base_url"`
	StorageBackend       string         `json:"storage_backend" yaml:"storage_backend"`
	DatabaseDSN          string         `json:"database_dsn" yaml:"database_dsn"`
	BlobBackend          string         `json:"blob_backend" yaml:"blob_backend"`
	AssetDir             string         `json:"asset_dir" yaml:"asset_dir"`
	S3RootUser           string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword       string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket             string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region             string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	GrantURLTTL          timex.Duration `json:"grant_url_ttl" yaml:"grant_url_ttl"`
	SecretKey            string         `json:"secret_key" yaml:"secret_key"`
	SessionTTL           timex.Duration `json:"session_ttl" yaml:"session_ttl"`
	LoginIdentifier      string         `json:"login_identifier" yaml:"login_identifier"`
	PaystackBaseURL      string         `json:"paystack_base_url" yaml:"paystack_base_url"`
	PaystackSecretKey    string         `json:"paystack_secret_key" yaml:"paystack_secret_key"`
	GatewayTimeout       timex.Duration `json:"gateway_timeout" yaml:"gateway_timeout"`
	MinorUnitsPerMajor   int64          `json:"minor_units_per_major" yaml:"minor_units_per_major"`
	SMTPHost             string         `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort             int            `json:"smtp_port" yaml:"smtp_port"`
	SMTPUser             string         `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword         string         `json:"smtp_password" yaml:"smtp_password"`
	MailFrom             string         `json:"mail_from" yaml:"mail_from"`
	NotifyWorkers        int            `json:"notify_workers" yaml:"notify_workers"`
	NotifyQueueSize      int            `json:"notify_queue_size" yaml:"notify_queue_size"`
	RateLimitRPS         float64        `json:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst       int            `json:"rate_limit_burst" yaml:"rate_limit_burst"`
	SessionPurgeSchedule string         `json:"session_purge_schedule" yaml:"session_purge_schedule"`
	CORSAllowedOrigins   []string       `json:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	LogLevel             string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays the file named by -c/-config. Keys absent from the
// file keep their current values.
func parseFile(c *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := toFile(c)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, fc)
	default:
		err = json.Unmarshal(raw, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fromFile(c, fc)
	return nil
}

func toFile(c *Config) *FileConfig {
	return &FileConfig{
		HTTPAddr:             c.HTTPAddr,
		GRPCAddr:             c.GRPCAddr,
		PublicBaseURL:        c.PublicBaseURL,
		StorageBackend:       c.StorageBackend,
		DatabaseDSN:          c.DatabaseDSN,
		BlobBackend:          c.BlobBackend,
		AssetDir:             c.AssetDir,
		S3RootUser:           c.S3RootUser,
		S3RootPassword:       c.S3RootPassword,
		S3Bucket:             c.S3Bucket,
		S3Region:             c.S3Region,
		S3BaseEndpoint:       c.S3BaseEndpoint,
		GrantURLTTL:          timex.Duration{Duration: c.GrantURLTTL},
		SecretKey:            c.SecretKey,
		SessionTTL:           timex.Duration{Duration: c.SessionTTL},
		LoginIdentifier:      c.LoginIdentifier,
		PaystackBaseURL:      c.PaystackBaseURL,
		PaystackSecretKey:    c.PaystackSecretKey,
		GatewayTimeout:       timex.Duration{Duration: c.GatewayTimeout},
		MinorUnitsPerMajor:   c.MinorUnitsPerMajor,
		SMTPHost:             c.SMTPHost,
		SMTPPort:             c.SMTPPort,
		SMTPUser:             c.SMTPUser,
		SMTPPassword:         c.SMTPPassword,
		MailFrom:             c.MailFrom,
		NotifyWorkers:        c.NotifyWorkers,
		NotifyQueueSize:      c.NotifyQueueSize,
		RateLimitRPS:         c.RateLimitRPS,
		RateLimitBurst:       c.RateLimitBurst,
		SessionPurgeSchedule: c.SessionPurgeSchedule,
		CORSAllowedOrigins:   c.CORSAllowedOrigins,
		LogLevel:             c.LogLevel,
	}
}

func fromFile(c *Config, fc *FileConfig) {
	c.HTTPAddr = fc.HTTPAddr
	c.GRPCAddr = fc.GRPCAddr
	c.PublicBaseURL = fc.PublicBaseURL
	c.StorageBackend = fc.StorageBackend
	c.DatabaseDSN = fc.DatabaseDSN
	c.BlobBackend = fc.BlobBackend
	c.AssetDir = fc.AssetDir
	c.S3RootUser = fc.S3RootUser
	c.S3RootPassword = fc.S3RootPassword
	c.S3Bucket = fc.S3Bucket
	c.S3Region = fc.S3Region
	c.S3BaseEndpoint = fc.S3BaseEndpoint
	c.GrantURLTTL = fc.GrantURLTTL.Duration
	c.SecretKey = fc.SecretKey
	c.SessionTTL = fc.SessionTTL.Duration
	c.LoginIdentifier = fc.LoginIdentifier
	c.PaystackBaseURL = fc.PaystackBaseURL
	c.PaystackSecretKey = fc.PaystackSecretKey
	c.GatewayTimeout = fc.GatewayTimeout.Duration
	c.MinorUnitsPerMajor = fc.MinorUnitsPerMajor
	c.SMTPHost = fc.SMTPHost
	c.SMTPPort = fc.SMTPPort
	c.SMTPUser = fc.SMTPUser
	c.SMTPPassword = fc.SMTPPassword
	c.MailFrom = fc.MailFrom
	c.NotifyWorkers = fc.NotifyWorkers
	c.NotifyQueueSize = fc.NotifyQueueSize
	c.RateLimitRPS = fc.RateLimitRPS
	c.RateLimitBurst = fc.RateLimitBurst
	c.SessionPurgeSchedule = fc.SessionPurgeSchedule
	c.CORSAllowedOrigins = fc.CORSAllowedOrigins
	c.LogLevel = fc.LogLevel
}
