package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/hpungsan/remixer/internal/errors"
)

// clearEnv blanks every variable Load reads so host settings don't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix) {
			name, _, _ := strings.Cut(kv, "=")
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	t.Setenv(EnvBearerToken, "")
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvPort, "")
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Server.Port, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Social.MaxRetries)
	assert.Equal(t, time.Second, cfg.Social.BaseDelay)
	assert.Equal(t, 5*time.Minute, cfg.Social.CacheTTL)
	assert.Equal(t, "https://api.twitter.com/2", cfg.Social.APIBase)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverridesFromFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `
server:
  port: 8080
social:
  max_retries: 5
  base_delay: 250ms
  cache_ttl: 1m
generation:
  model: claude-test
log:
  format: console
`)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Social.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Social.BaseDelay)
	assert.Equal(t, time.Minute, cfg.Social.CacheTTL)
	assert.Equal(t, "claude-test", cfg.Generation.Model)
	assert.Equal(t, "console", cfg.Log.Format)

	// Untouched keys keep their defaults
	assert.Equal(t, 1024, cfg.Generation.MaxTokens)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "social:\n  max_retries: 5\n")

	t.Setenv("REMIXER_SOCIAL_MAX_RETRIES", "7")
	t.Setenv("REMIXER_SOCIAL_CACHE_TTL", "30s")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Social.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Social.CacheTTL)
}

func TestLoad_LegacyEnv(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	t.Setenv(EnvBearerToken, "bearer-123")
	t.Setenv(EnvAPIKey, "sk-test")
	t.Setenv(EnvPort, "4000")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "bearer-123", cfg.Social.BearerToken)
	assert.Equal(t, "sk-test", cfg.Generation.APIKey)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.NoError(t, cfg.RequireCredentials())
}

func TestLoad_FileCredentialWinsOverLegacyEnv(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "social:\n  bearer_token: from-file\n")
	t.Setenv(EnvBearerToken, "from-env")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Social.BearerToken)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "server: [unclosed")

	_, err := Load(tmpDir)
	require.Error(t, err)
}

func TestLoad_FileTooLarge(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "# "+strings.Repeat("x", maxConfigFileSize))

	_, err := Load(tmpDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestRequireCredentials(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.RequireCredentials()
	require.Error(t, err)
	assert.True(t, rerrors.Is(err, rerrors.ErrConfiguration))
	assert.Contains(t, err.Error(), EnvBearerToken)
	assert.Contains(t, err.Error(), EnvAPIKey)

	cfg.Social.BearerToken = "x"
	err = cfg.RequireCredentials()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), EnvBearerToken)

	cfg.Generation.APIKey = "y"
	assert.NoError(t, cfg.RequireCredentials())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero retries", func(c *Config) { c.Social.MaxRetries = 0 }},
		{"negative delay", func(c *Config) { c.Social.BaseDelay = -time.Second }},
		{"zero ttl", func(c *Config) { c.Social.CacheTTL = 0 }},
		{"zero cache size", func(c *Config) { c.Social.CacheMaxEntries = 0 }},
		{"negative rps", func(c *Config) { c.Social.RequestsPerSecond = -1 }},
		{"zero max tokens", func(c *Config) { c.Generation.MaxTokens = 0 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "social.max_retries", envKey("REMIXER_SOCIAL_MAX_RETRIES"))
	assert.Equal(t, "server.cors_origins", envKey("REMIXER_SERVER_CORS_ORIGINS"))
	assert.Equal(t, "log.level", envKey("REMIXER_LOG_LEVEL"))
	assert.Equal(t, "home", envKey("REMIXER_HOME"))
}

func TestBaseDir(t *testing.T) {
	t.Setenv("REMIXER_HOME", "/tmp/remixer-test")
	dir, err := BaseDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/remixer-test", dir)
}
