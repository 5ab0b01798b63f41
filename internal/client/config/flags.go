package config

import (
	"flag"

	"github.com/dmitrijs2005/gophnotes/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only -a, -m, -s and -i are considered; everything else in args is
// dropped by flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-m", "-s", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	fs.DurationVar(&cfg.RefreshMargin, "m", cfg.RefreshMargin, "refresh the access token this long before it expires")
	fs.StringVar(&cfg.SessionFile, "s", cfg.SessionFile, "local session database")
	fs.DurationVar(&cfg.OnlineCheckInterval, "i", cfg.OnlineCheckInterval, "online check interval")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
