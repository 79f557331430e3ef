package config

import (
	"flag"
	"strings"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/flagx"
)

var knownFlags = []string{
	"-a", "-g", "-d", "-s", "-t", "-k", "-u", "-p", "-b", "-e",
	"-base-url", "-storage", "-blobs", "-assets", "-region", "-login-by", "-log-level",
}

// parseFlags applies command-line flags over c.
//
//	-a string         HTTP bind address (e.g., ":5000")
//	-g string         gRPC health bind address
//	-d string         PostgreSQL DSN
//	-s string         JWT HMAC secret key
//	-t int            session validity, minutes
//	-k string         Paystack secret key
//	-u / -p string    S3 access key / secret
//	-b string         S3 bucket
//	-e string         S3 base endpoint
//	-base-url string  public base URL used in mailed links and callbacks
//	-storage string   memory | postgres
//	-blobs string     local | s3
//	-assets string    local asset directory
//	-region string    S3 region
//	-login-by string  username | email
//	-log-level string debug | info | warn | error
//
// Only these flags are looked at; other arguments are left to other flag sets.
func parseFlags(c *Config, args []string) error {
	allowed := make([]string, 0, len(knownFlags)*2)
	for _, f := range knownFlags {
		allowed = append(allowed, f, "-"+f)
	}
	args = flagx.FilterArgs(args, allowed)

	fs := flag.NewFlagSet("comicvault-server", flag.ContinueOnError)

	fs.StringVar(&c.HTTPAddr, "a", c.HTTPAddr, "HTTP address and port")
	fs.StringVar(&c.GRPCAddr, "g", c.GRPCAddr, "gRPC health address and port")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN")
	fs.StringVar(&c.SecretKey, "s", c.SecretKey, "secret key")
	sessionTTL := fs.Int("t", int(c.SessionTTL.Minutes()), "session validity (in minutes)")
	fs.StringVar(&c.PaystackSecretKey, "k", c.PaystackSecretKey, "paystack secret key")
	fs.StringVar(&c.S3RootUser, "u", c.S3RootUser, "S3 access key")
	fs.StringVar(&c.S3RootPassword, "p", c.S3RootPassword, "S3 secret key")
	fs.StringVar(&c.S3Bucket, "b", c.S3Bucket, "S3 bucket")
	fs.StringVar(&c.S3BaseEndpoint, "e", c.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&c.PublicBaseURL, "base-url", c.PublicBaseURL, "public base URL")
	fs.StringVar(&c.StorageBackend, "storage", c.StorageBackend, "storage backend (memory|postgres)")
	fs.StringVar(&c.BlobBackend, "blobs", c.BlobBackend, "blob backend (local|s3)")
	fs.StringVar(&c.AssetDir, "assets", c.AssetDir, "asset directory for the local blob backend")
	fs.StringVar(&c.S3Region, "region", c.S3Region, "S3 region")
	fs.StringVar(&c.LoginIdentifier, "login-by", c.LoginIdentifier, "login identifier (username|email)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			c.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		}
	})
	c.LoginIdentifier = strings.ToLower(c.LoginIdentifier)
	return nil
}
