package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:5000", c.ServerURL)
	assert.Equal(t, 30*time.Second, c.RefreshMargin)
	assert.Equal(t, "gophnotes.db", c.SessionFile)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"server_url":     "http://from-json:1",
		"refresh_margin": "20s",
	})
	os.Args = []string{"testbin", "-c", path, "-a", "http://from-flag:2"}

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "http://from-flag:2", cfg.ServerURL)
	assert.Equal(t, 20*time.Second, cfg.RefreshMargin)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}
