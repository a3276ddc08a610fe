package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags reads the global flags that precede the subcommand and returns
// what follows them.
//
//	-a string     address and port of the keygate server
//	-d string     path of the local session cache
//	-hwid string  hardware id override
//	-k string     admin API token
//	-t int        request timeout (in seconds)
//	-c string     JSON config file (read by parseJson)
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("keygate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.CacheDSN, "d", cfg.CacheDSN, "session cache path")
	fs.StringVar(&cfg.HWID, "hwid", cfg.HWID, "hardware id override")
	fs.StringVar(&cfg.AdminToken, "k", cfg.AdminToken, "admin API token")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	var ignored string
	fs.StringVar(&ignored, "c", "", "config file")
	fs.StringVar(&ignored, "config", "", "config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})

	return fs.Args(), nil
}
