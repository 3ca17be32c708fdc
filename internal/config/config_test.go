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
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "decks", cfg.DecksDir)
	assert.Equal(t, 5, cfg.Session.Minutes)
	assert.Equal(t, 300*time.Millisecond, cfg.Session.TransitionDelay)
	assert.Equal(t, 1, cfg.Session.PersistAttempts)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "studydeck.db", cfg.Storage.DSN)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Empty(t, cfg.User.ID)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yml := `
env: production
decks_dir: /srv/decks
session:
  minutes: 10
  transition_delay: 0s
storage:
  driver: postgres
  dsn: postgres://localhost/studydeck
user:
  id: from-file
`
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("STUDYDECK_USER__ID", "from-env")
	t.Setenv("STUDYDECK_SESSION__MINUTES", "15")

	cfg, err := Load(newFlags(t, "--config", path, "--minutes", "5"))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "/srv/decks", cfg.DecksDir)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, time.Duration(0), cfg.Session.TransitionDelay)
	assert.Equal(t, "from-env", cfg.User.ID)
	assert.Equal(t, 5, cfg.Session.Minutes, "explicit flag wins over env")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STUDYDECK_HTTP__ADDR=127.0.0.1:9000\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("STUDYDECK_HTTP__ADDR") })

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"minutes outside study durations", []string{"--minutes", "7"}, "minutes"},
		{"unknown driver", []string{"--driver", "mysql"}, "driver"},
		{"too many attempts", []string{"--persist-attempts", "9"}, "persist_attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())

			_, err := Load(newFlags(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(newFlags(t, "--config", "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "session.minutes", envKey("STUDYDECK_SESSION__MINUTES"))
	assert.Equal(t, "decks_dir", envKey("STUDYDECK_DECKS_DIR"))
}
