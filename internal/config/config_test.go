package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "auth:\n  jwt_secret: "+testSecret+"\n"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "http://0.0.0.0:8080", cfg.Server.BaseURL)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 90*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 5, cfg.Auth.MaxSessions)
	assert.Equal(t, int64(4<<20), cfg.Storage.UploadMaxBytes)
	assert.Equal(t, int64(2<<20), cfg.Storage.ProfileMaxBytes)
	assert.Equal(t, 20*time.Second, cfg.Imaging.InferenceTimeout)
	assert.NotEmpty(t, cfg.Account.DefaultProfilePictures)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadReadsDurationsAndLists(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9000
  allowed_origins: ["https://app.example"]
auth:
  jwt_secret: `+testSecret+`
  access_token_ttl: 30m
storage:
  temp_ttl: 2h
rate_limit:
  enabled: true
  redis_addr: localhost:6379
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 2*time.Hour, cfg.Storage.TempTTL)
	assert.True(t, cfg.RateLimit.Enabled)

	level, err := ParseLevel(cfg.Log.Level)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BOOTH_JWT_SECRET", testSecret+"-from-env")
	t.Setenv("BOOTH_DATABASE_PATH", "/tmp/booth-test.db")
	t.Setenv("BOOTH_REDIS_DB", "3")
	t.Setenv("BOOTH_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "auth:\n  jwt_secret: short\n"))
	require.NoError(t, err)

	assert.Equal(t, testSecret+"-from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "/tmp/booth-test.db", cfg.Database.Path)
	assert.Equal(t, 3, cfg.RateLimit.RedisDB)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"missing secret": "server:\n  port: 8080\n",
		"short secret":   "auth:\n  jwt_secret: tooshort\n",
		"bad level":      "auth:\n  jwt_secret: " + testSecret + "\nlog:\n  level: loud\n",
		"bad yaml":       "auth: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
