package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/keygate/internal/flagx"
	"github.com/dmitrijs2005/keygate/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// leave the current value intact.
type JsonConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr"`
	CacheDSN           *string         `json:"cache_dsn"`
	HWID               *string         `json:"hwid"`
	AdminToken         *string         `json:"admin_token"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with the file named by -c or -config among the
// global flags.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(globalArgs(args))
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.CacheDSN != nil {
		cfg.CacheDSN = *jc.CacheDSN
	}
	if jc.HWID != nil {
		cfg.HWID = *jc.HWID
	}
	if jc.AdminToken != nil {
		cfg.AdminToken = *jc.AdminToken
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}

// globalArgs returns the arguments before the subcommand name. Every global
// flag takes a value, so a bare word in flag position starts the subcommand.
func globalArgs(args []string) []string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" || len(a) < 2 || a[0] != '-' {
			return args[:i]
		}
		if !strings.Contains(a, "=") {
			i++
		}
	}
	return args
}
