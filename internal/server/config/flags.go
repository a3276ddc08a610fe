package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/keygate/internal/flagx"
)

// parseFlags overlays command-line flags.
//
//	-a string   gRPC bind address
//	-h string   ops HTTP bind address
//	-d string   PostgreSQL DSN
//	-s string   identity token signing key
//	-t int      identity token validity, hours
//	-k string   admin API token
//	-w string   wipe secret
//	-z string   IANA time zone for expiry arithmetic
//	-x string   activation key prefix
//	-l string   log level
//	-b string   S3 bucket for wipe archives (empty disables)
//	-e string   S3 base endpoint
func parseFlags(config *Config, args []string) error {
	filtered := flagx.FilterArgs(args, []string{"-a", "-h", "-d", "-s", "-t", "-k", "-w", "-z", "-x", "-l", "-b", "-e"})

	fs := flag.NewFlagSet("keygate-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "h", config.EndpointAddrHTTP, "ops HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "identity token signing key")
	tokenHours := fs.Int("t", int(config.IdentityTokenValidityDuration.Hours()), "identity token validity (in hours)")
	fs.StringVar(&config.AdminToken, "k", config.AdminToken, "admin API token")
	fs.StringVar(&config.WipeSecret, "w", config.WipeSecret, "wipe secret")
	fs.StringVar(&config.Timezone, "z", config.Timezone, "time zone for expiry arithmetic")
	fs.StringVar(&config.KeyPrefix, "x", config.KeyPrefix, "activation key prefix")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket for wipe archives")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(filtered); err != nil {
		return err
	}

	tokenFlagSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			tokenFlagSet = true
		}
	})
	if tokenFlagSet {
		config.IdentityTokenValidityDuration = time.Duration(*tokenHours) * time.Hour
	}

	return nil
}
