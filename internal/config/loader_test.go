package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoad_DefaultsAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
humanizer:
  poll_interval: 2s
`)
	t.Setenv("APP_ENVIRONMENT", "test")
	t.Setenv("DATABASE_DSN", "user:pass@tcp(localhost:3306)/humanizer?parseTime=true")
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("HUMANIZER_API_KEY", "key-from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "user:pass@tcp(localhost:3306)/humanizer?parseTime=true", cfg.Database.DSN)
	assert.Equal(t, "key-from-env", cfg.Humanizer.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Humanizer.PollInterval)
	assert.Equal(t, 120, cfg.Humanizer.MaxPolls)
	assert.Equal(t, 50, cfg.Humanizer.MinLength)
	assert.Equal(t, "More Human", cfg.Humanizer.Strength)
	assert.Equal(t, "v11", cfg.Humanizer.Model)
	assert.Equal(t, 72*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "test", cfg.App.Environment)
}

func TestLoad_EnvironmentFileMerges(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
logging:
  level: info
humanizer:
  max_polls: 10
`)
	writeConfig(t, dir, "config.staging.yaml", `
logging:
  level: debug
`)
	t.Setenv("APP_ENVIRONMENT", "staging")
	t.Setenv("DATABASE_DSN", "dsn")
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Humanizer.MaxPolls)
}

func TestLoad_MissingSecrets(t *testing.T) {
	tests := []struct {
		name   string
		dsn    string
		secret string
	}{
		{name: "missing dsn", dsn: "", secret: "0123456789abcdef0123"},
		{name: "missing secret", dsn: "dsn", secret: ""},
		{name: "short secret", dsn: "dsn", secret: "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("DATABASE_DSN", tt.dsn)
			t.Setenv("AUTH_JWT_SECRET", tt.secret)

			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}
