package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "COMICVAULT_"

// parseEnv loads the dotenv file (given by -env, or ./.env when present)
// without overriding variables already set, then reads COMICVAULT_*.
func parseEnv(c *Config, args []string) error {
	envFile := flagx.EnvFileFlag(args)
	switch {
	case envFile != "":
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	default:
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}

	str("HTTP_ADDR", &c.HTTPAddr)
	str("GRPC_ADDR", &c.GRPCAddr)
	str("PUBLIC_BASE_URL", &c.PublicBaseURL)
	str("STORAGE_BACKEND", &c.StorageBackend)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("BLOB_BACKEND", &c.BlobBackend)
	str("ASSET_DIR", &c.AssetDir)
	str("S3_ROOT_USER", &c.S3RootUser)
	str("S3_ROOT_PASSWORD", &c.S3RootPassword)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_REGION", &c.S3Region)
	str("S3_BASE_ENDPOINT", &c.S3BaseEndpoint)
	dur("GRANT_URL_TTL", &c.GrantURLTTL)
	str("SECRET_KEY", &c.SecretKey)
	dur("SESSION_TTL", &c.SessionTTL)
	str("LOGIN_IDENTIFIER", &c.LoginIdentifier)
	str("PAYSTACK_BASE_URL", &c.PaystackBaseURL)
	str("PAYSTACK_SECRET_KEY", &c.PaystackSecretKey)
	dur("GATEWAY_TIMEOUT", &c.GatewayTimeout)
	if v, ok := os.LookupEnv(envPrefix + "MINOR_UNITS_PER_MAJOR"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMINOR_UNITS_PER_MAJOR: %w", envPrefix, err))
		} else {
			c.MinorUnitsPerMajor = n
		}
	}
	str("SMTP_HOST", &c.SMTPHost)
	integer("SMTP_PORT", &c.SMTPPort)
	str("SMTP_USER", &c.SMTPUser)
	str("SMTP_PASSWORD", &c.SMTPPassword)
	str("MAIL_FROM", &c.MailFrom)
	integer("NOTIFY_WORKERS", &c.NotifyWorkers)
	integer("NOTIFY_QUEUE_SIZE", &c.NotifyQueueSize)
	if v, ok := os.LookupEnv(envPrefix + "RATE_LIMIT_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_LIMIT_RPS: %w", envPrefix, err))
		} else {
			c.RateLimitRPS = f
		}
	}
	integer("RATE_LIMIT_BURST", &c.RateLimitBurst)
	str("SESSION_PURGE_SCHEDULE", &c.SessionPurgeSchedule)
	if v, ok := os.LookupEnv(envPrefix + "CORS_ALLOWED_ORIGINS"); ok {
		c.CORSAllowedOrigins = splitList(v)
	}
	str("LOG_LEVEL", &c.LogLevel)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
