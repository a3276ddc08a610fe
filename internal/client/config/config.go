package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the keygate launcher.
//
// HWID overrides the machine fingerprint; leave it empty to derive one.
// AdminToken is only needed for the admin subcommands.
type Config struct {
	ServerEndpointAddr string
	CacheDSN           string
	HWID               string
	AdminToken         string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.CacheDSN = defaultCachePath()
	c.HWID = ""
	c.AdminToken = ""
	c.RequestTimeout = 10 * time.Second
}

func defaultCachePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "keygate-session.db"
	}
	return filepath.Join(dir, "keygate", "session.db")
}

// LoadConfig applies defaults, the JSON file and then the leading flags of
// os.Args. It returns the config and the remaining arguments, which name the
// subcommand. Later sources take precedence over earlier ones.
func LoadConfig() (*Config, []string, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, nil, err
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}
