package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophnotes/internal/flagx"
	"github.com/dmitrijs2005/gophnotes/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// "30s" style strings. Zero values leave the current setting untouched.
type JsonConfig struct {
	Address            string         `json:"address"`
	DatabaseDSN        string         `json:"database_dsn"`
	Environment        string         `json:"environment"`
	AccessTokenSecret  string         `json:"access_token_secret"`
	RefreshTokenSecret string         `json:"refresh_token_secret"`
	SigningMethod      string         `json:"signing_method"`
	AccessTokenTTL     timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL    timex.Duration `json:"refresh_token_ttl"`
	PasswordHashCost   int            `json:"password_hash_cost"`
	LoginRatePerMinute int            `json:"login_rate_per_minute"`
	LoginBurst         int            `json:"login_burst"`
	AllowedOrigins     []string       `json:"allowed_origins"`
	TrustedProxies     []string       `json:"trusted_proxies"`
	LogLevel           string         `json:"log_level"`
	LogFormat          string         `json:"log_format"`
	ShutdownTimeout    timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays the file named by -c/-config onto config. It panics
// when the file cannot be read or decoded.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.Address, c.Address)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.Environment, c.Environment)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.SigningMethod, c.SigningMethod)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)

	if c.AccessTokenTTL.Duration > 0 {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL.Duration > 0 {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	if c.ShutdownTimeout.Duration > 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.PasswordHashCost > 0 {
		config.PasswordHashCost = c.PasswordHashCost
	}
	if c.LoginRatePerMinute > 0 {
		config.LoginRatePerMinute = c.LoginRatePerMinute
	}
	if c.LoginBurst > 0 {
		config.LoginBurst = c.LoginBurst
	}
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if len(c.TrustedProxies) > 0 {
		config.TrustedProxies = c.TrustedProxies
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
