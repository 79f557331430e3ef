// Package config loads runtime configuration for the comicvault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file named by COMICVAULT_CLIENT_CONFIG.
//  3. COMICVAULT_SERVER, COMICVAULT_TIMEOUT and COMICVAULT_TOKEN_FILE.
//  4. The --server flag of the CLI, applied by the caller.
//
// # JSON schema
//
// The timeout accepts a string like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:5000",
//	  "timeout": "30s",
//	  "token_file": "/home/me/.config/comicvault/session"
//	}
package config
