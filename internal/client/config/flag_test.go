package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "https://notes.example", "-m", "10s", "-s", "/tmp/s.db", "-i", "1m"},
			expected: &Config{
				ServerURL:           "https://notes.example",
				RefreshMargin:       10 * time.Second,
				SessionFile:         "/tmp/s.db",
				OnlineCheckInterval: time.Minute,
			},
		},
		{
			name:     "unknown flags are ignored",
			args:     []string{"-x", "1", "-a", "http://h:1"},
			expected: &Config{ServerURL: "http://h:1"},
		},
		{name: "bad margin", args: []string{"-m", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config, tt.args) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
