// Package config loads runtime configuration for the keygate launcher.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Flags must precede the subcommand:
//
//	keygate -a license.example.com:50051 check
//
// # JSON schema
//
// The JSON loader uses timex.Duration, so request_timeout can be a string
// like "10s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "cache_dsn": "/home/me/.config/keygate/session.db",
//	  "hwid": "",
//	  "admin_token": "",
//	  "request_timeout": "10s"
//	}
package config
