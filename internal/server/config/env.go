package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces server environment variables, e.g. KEYGATE_GRPC_ADDR.
// Every variable is also looked up without the prefix, so a plain
// DATABASE_URL works as well.
const EnvPrefix = "KEYGATE"

// parseEnv overlays environment variables. Unset variables keep the current
// value.
func parseEnv(config *Config) error {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
