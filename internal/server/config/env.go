package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv reads .env from the working directory into the process
// environment. Variables that are already set keep their values, and a
// missing file is not an error.
var loadDotEnv = func() {
	_ = godotenv.Load()
}

// parseEnv overlays environment variables onto config.
//
//	ADDRESS, PORT            listen address (PORT alone means ":PORT")
//	DATABASE_DSN             Postgres DSN
//	DB_HOST, DB_NAME,
//	DB_USERNAME, DB_PASSWORD used to build the DSN when DATABASE_DSN is unset
//	APP_ENV                  "production" enables Secure cookies
//	ACCESS_TOKEN_SECRET, REFRESH_TOKEN_SECRET
//	ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL (time.ParseDuration syntax)
//	CORS_ORIGINS             comma separated
//	LOG_LEVEL
func parseEnv(config *Config, lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if port := get("PORT"); port != "" {
		config.Address = ":" + port
	}
	setString(&config.Address, get("ADDRESS"))

	if dsn := get("DATABASE_DSN"); dsn != "" {
		config.DatabaseDSN = dsn
	} else if host, name := get("DB_HOST"), get("DB_NAME"); host != "" && name != "" {
		config.DatabaseDSN = buildDSN(host, name, get("DB_USERNAME"), get("DB_PASSWORD"))
	}

	setString(&config.Environment, get("APP_ENV"))
	setString(&config.AccessTokenSecret, get("ACCESS_TOKEN_SECRET"))
	setString(&config.RefreshTokenSecret, get("REFRESH_TOKEN_SECRET"))
	setString(&config.LogLevel, get("LOG_LEVEL"))

	if d, ok := envDuration(get("ACCESS_TOKEN_TTL")); ok {
		config.AccessTokenTTL = d
	}
	if d, ok := envDuration(get("REFRESH_TOKEN_TTL")); ok {
		config.RefreshTokenTTL = d
	}
	if n, err := strconv.Atoi(get("PASSWORD_HASH_COST")); err == nil && n > 0 {
		config.PasswordHashCost = n
	}

	if list := envList(get("CORS_ORIGINS")); len(list) > 0 {
		config.AllowedOrigins = list
	}
	if list := envList(get("TRUSTED_PROXIES")); len(list) > 0 {
		config.TrustedProxies = list
	}
}

// envList splits a comma separated value, dropping blanks.
func envList(v string) []string {
	var list []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	return list
}

func envDuration(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func buildDSN(host, name, user, password string) string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     host,
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	if !strings.Contains(host, ":") {
		u.Host = fmt.Sprintf("%s:5432", host)
	}
	return u.String()
}
