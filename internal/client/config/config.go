package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the gophnotes CLI.
type Config struct {
	ServerURL string
	// RefreshMargin is how long before expiry the access token is renewed.
	RefreshMargin       time.Duration
	SessionFile         string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:5000"
	c.RefreshMargin = 30 * time.Second
	c.SessionFile = "gophnotes.db"
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 5 * time.Second
}

// LoadConfig applies defaults, then the JSON file, then flags.
func LoadConfig() *Config {
	args := os.Args[1:]

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
