package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/keygate/internal/flagx"
	"github.com/dmitrijs2005/keygate/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// "720h" and integer nanoseconds. Absent keys leave the current value intact.
type JsonConfig struct {
	EndpointAddrGRPC              *string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP              *string         `json:"endpoint_addr_http"`
	DatabaseDSN                   *string         `json:"database_dsn"`
	SecretKey                     *string         `json:"secret_key"`
	IdentityTokenValidityDuration *timex.Duration `json:"identity_token_validity_duration"`
	AdminToken                    *string         `json:"admin_token"`
	WipeSecret                    *string         `json:"wipe_secret"`
	BcryptCost                    *int            `json:"bcrypt_cost"`
	Timezone                      *string         `json:"timezone"`
	KeyPrefix                     *string         `json:"key_prefix"`
	AuthRateLimit                 *float64        `json:"auth_rate_limit"`
	AuthRateBurst                 *int            `json:"auth_rate_burst"`
	LogLevel                      *string         `json:"log_level"`
	LogFormat                     *string         `json:"log_format"`
	S3RootUser                    *string         `json:"s3_root_user"`
	S3RootPassword                *string         `json:"s3_root_password"`
	S3Bucket                      *string         `json:"s3_bucket"`
	S3Region                      *string         `json:"s3_region"`
	S3BaseEndpoint                *string         `json:"s3_base_endpoint"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// parseJson overlays the file named by -c/-config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	if c.IdentityTokenValidityDuration != nil {
		config.IdentityTokenValidityDuration = c.IdentityTokenValidityDuration.Duration
	}
	set(&config.AdminToken, c.AdminToken)
	set(&config.WipeSecret, c.WipeSecret)
	set(&config.BcryptCost, c.BcryptCost)
	set(&config.Timezone, c.Timezone)
	set(&config.KeyPrefix, c.KeyPrefix)
	set(&config.AuthRateLimit, c.AuthRateLimit)
	set(&config.AuthRateBurst, c.AuthRateBurst)
	set(&config.LogLevel, c.LogLevel)
	set(&config.LogFormat, c.LogFormat)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	return nil
}
