package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

// clearEnv makes sure host variables do not leak into a test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "HERALD_LISTEN", "HERALD_PEER", "HERALD_ROLE", "HERALD_MAX_FAILURES", "HERALD_PROBE_INTERVAL", "HERALD_CONFIG"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

// TestLoadDefaults tests that an empty command line yields the defaults
func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	want := Default()
	assert.Equal(t, &want, cfg)
	assert.False(t, cfg.Passive())
}

// TestLoadPrecedence tests flag, env and PORT precedence
func TestLoadPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		args       []string
		wantListen string
	}{
		{"PORT overrides default", map[string]string{"PORT": "9000"}, nil, ":9000"},
		{"flag beats PORT", map[string]string{"PORT": "9000"}, []string{"--listen", ":7000"}, ":7000"},
		{"env beats PORT", map[string]string{"PORT": "9000", "HERALD_LISTEN": ":6000"}, nil, ":6000"},
		{"flag beats env", map[string]string{"HERALD_LISTEN": ":6000"}, []string{"--listen=:5000"}, ":5000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(newFlags(t, tt.args...))
			require.NoError(t, err)
			assert.Equal(t, tt.wantListen, cfg.Listen)
		})
	}
}

// TestLoadEnvironment tests HERALD_ variables with dashed keys
func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HERALD_ROLE", "secondary")
	t.Setenv("HERALD_PEER", "http://primary:8080")
	t.Setenv("HERALD_MAX_FAILURES", "5")
	t.Setenv("HERALD_PROBE_INTERVAL", "250ms")

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.True(t, cfg.Passive())
	assert.Equal(t, "http://primary:8080", cfg.Peer)
	assert.Equal(t, 5, cfg.MaxFailures)
	assert.Equal(t, 250*time.Millisecond, cfg.ProbeInterval)
}

// TestLoadConfigFile tests reading a yaml file named by --config
func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "herald.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":4000\"\nsubscribe-timeout: 10s\nlog-format: json\n"), 0o600))

	cfg, err := Load(newFlags(t, "--config", path, "--log-format", "text"))
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.Listen)
	assert.Equal(t, 10*time.Second, cfg.SubscribeTimeout)
	assert.Equal(t, "text", cfg.LogFormat, "flag beats file")

	_, err = Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

// TestValidate tests rejection of bad settings
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown role", func(c *Config) { c.Role = "leader" }},
		{"secondary without peer", func(c *Config) { c.Role = RoleSecondary }},
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"zero interval", func(c *Config) { c.ProbeInterval = 0 }},
		{"negative timeout", func(c *Config) { c.ProbeTimeout = -time.Second }},
		{"zero subscribe timeout", func(c *Config) { c.SubscribeTimeout = 0 }},
		{"zero failures", func(c *Config) { c.MaxFailures = 0 }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	ok := Default()
	ok.Role = RoleSecondary
	ok.Peer = "localhost:8080"
	assert.NoError(t, ok.Validate())
}
