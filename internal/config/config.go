package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	rerrors "github.com/hpungsan/remixer/internal/errors"
)

const (
	// EnvPrefix prefixes environment overrides: REMIXER_SOCIAL_MAX_RETRIES -> social.max_retries.
	EnvPrefix = "REMIXER_"

	// Legacy variable names, read when the REMIXER_ forms are unset.
	EnvBearerToken = "TWITTER_BEARER_TOKEN"
	EnvAPIKey      = "ANTHROPIC_API_KEY"
	EnvPort        = "PORT"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Config holds application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Social     SocialConfig     `koanf:"social"`
	Generation GenerationConfig `koanf:"generation"`
	Store      StoreConfig      `koanf:"store"`
	Log        LogConfig        `koanf:"log"`
	MCP        MCPConfig        `koanf:"mcp"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Bind string `koanf:"bind"`
	Port int    `koanf:"port"`

	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SocialConfig configures the social-media API client.
type SocialConfig struct {
	APIBase     string `koanf:"api_base"`
	BearerToken string `koanf:"bearer_token"`

	// MaxRetries is the number of attempts per fetch (not additional retries).
	MaxRetries int `koanf:"max_retries"`

	// BaseDelay is the first backoff delay; attempt i waits BaseDelay * 2^i.
	BaseDelay time.Duration `koanf:"base_delay"`

	CacheTTL        time.Duration `koanf:"cache_ttl"`
	CacheMaxEntries int           `koanf:"cache_max_entries"`

	// RequestsPerSecond paces outbound calls. 0 disables pacing.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	Timeout time.Duration `koanf:"timeout"`
}

// GenerationConfig configures the LLM generation API.
type GenerationConfig struct {
	APIKey    string `koanf:"api_key"`
	Model     string `koanf:"model"`
	MaxTokens int    `koanf:"max_tokens"`

	// MaxPDFBytes caps decoded PDF uploads.
	MaxPDFBytes int `koanf:"max_pdf_bytes"`
}

// StoreConfig configures the saved items database.
type StoreConfig struct {
	// MaxContentChars is the maximum character count for saved item content.
	MaxContentChars int `koanf:"max_content_chars"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `koanf:"db_max_open_conns"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `koanf:"db_max_idle_conns"`

	// AllowedPaths lists extra absolute directories for export/import files,
	// besides <base>/exports.
	AllowedPaths []string `koanf:"allowed_paths"`

	// AllowUnsafePaths lifts the directory restriction (symlinks are still refused).
	AllowUnsafePaths bool `koanf:"allow_unsafe_paths"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// MCPConfig configures the MCP stdio server.
type MCPConfig struct {
	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `koanf:"disabled_tools"`

	// DisabledTypes disables every tool of a type ("saved" covers saved_*).
	DisabledTypes []string `koanf:"disabled_types"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:            "127.0.0.1",
			Port:            3001,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 5 * time.Second,
		},
		Social: SocialConfig{
			APIBase:         "https://api.twitter.com/2",
			MaxRetries:      3,
			BaseDelay:       time.Second,
			CacheTTL:        5 * time.Minute,
			CacheMaxEntries: 1024,
			Timeout:         15 * time.Second,
		},
		Generation: GenerationConfig{
			Model:       "claude-3-5-sonnet-20241022",
			MaxTokens:   1024,
			MaxPDFBytes: 32 * 1024 * 1024,
		},
		Store: StoreConfig{
			MaxContentChars: 20000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// BaseDir returns the data directory: $REMIXER_HOME or ~/.remixer.
func BaseDir() (string, error) {
	if dir := os.Getenv("REMIXER_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".remixer"), nil
}

// Load loads configuration from baseDir/config.yaml, then applies environment
// overrides. Returns defaults (plus env) if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.remixer.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.yaml"))
}

func loadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyLegacyEnv(cfg)
	return cfg, nil
}

// readConfigFile returns nil content when the file doesn't exist.
func readConfigFile(configPath string) ([]byte, error) {
	f, err := os.Open(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return io.ReadAll(f)
}

// envKey maps REMIXER_SOCIAL_MAX_RETRIES to social.max_retries.
// Only the first underscore separates section from key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, found := strings.Cut(s, "_")
	if !found {
		return section
	}
	return section + "." + key
}

// applyLegacyEnv fills credentials and port from the legacy variable names
// when they were not set through the file or REMIXER_ variables.
func applyLegacyEnv(cfg *Config) {
	if cfg.Social.BearerToken == "" {
		cfg.Social.BearerToken = os.Getenv(EnvBearerToken)
	}
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = os.Getenv(EnvAPIKey)
	}
	if port := os.Getenv(EnvPort); port != "" && os.Getenv(EnvPrefix+"SERVER_PORT") == "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
}

// RequireCredentials returns a CONFIGURATION_ERROR naming every missing
// credential. Server and MCP modes call this before starting.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Social.BearerToken == "" {
		missing = append(missing, EnvBearerToken)
	}
	if c.Generation.APIKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if len(missing) > 0 {
		return rerrors.NewConfiguration(missing)
	}
	return nil
}

// Validate checks value ranges after loading.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Social.MaxRetries < 1 {
		return fmt.Errorf("social.max_retries must be at least 1")
	}
	if c.Social.BaseDelay < 0 {
		return fmt.Errorf("social.base_delay must not be negative")
	}
	if c.Social.CacheTTL <= 0 {
		return fmt.Errorf("social.cache_ttl must be positive")
	}
	if c.Social.CacheMaxEntries < 1 {
		return fmt.Errorf("social.cache_max_entries must be at least 1")
	}
	if c.Social.RequestsPerSecond < 0 {
		return fmt.Errorf("social.requests_per_second must not be negative")
	}
	if c.Generation.MaxTokens < 1 {
		return fmt.Errorf("generation.max_tokens must be at least 1")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}
