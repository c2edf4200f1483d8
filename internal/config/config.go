package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Imaging   ImagingConfig   `yaml:"imaging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Account   AccountConfig   `yaml:"account"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Name           string   `yaml:"name"`
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	BaseURL        string   `yaml:"base_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	MaxSessions     int           `yaml:"max_sessions"`
}

type StorageConfig struct {
	Root            string        `yaml:"root"`
	UploadMaxBytes  int64         `yaml:"upload_max_bytes"`
	ProfileMaxBytes int64         `yaml:"profile_max_bytes"`
	TempTTL         time.Duration `yaml:"temp_ttl"`
	ReapInterval    time.Duration `yaml:"reap_interval"`
}

type ImagingConfig struct {
	InferenceTimeout time.Duration `yaml:"inference_timeout"`
	ColorClusters    int           `yaml:"color_clusters"`
	// SegmentationURL and EmbeddingURL point at an HTTP model server. When
	// empty the built-in models run in process.
	SegmentationURL string `yaml:"segmentation_url"`
	EmbeddingURL    string `yaml:"embedding_url"`
}

type RateLimitConfig struct {
	Enabled         bool   `yaml:"enabled"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	Prefix          string `yaml:"prefix"`
	GlobalPerMinute int    `yaml:"global_per_minute"`
}

type AccountConfig struct {
	DefaultProfilePictures []string `yaml:"default_profile_pictures"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML file at path, then a .env file if one exists, then
// BOOTH_* environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("BOOTH_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("BOOTH_DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("BOOTH_STORAGE_ROOT"); v != "" {
		c.Storage.Root = v
	}
	if v := os.Getenv("BOOTH_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("BOOTH_REDIS_ADDR"); v != "" {
		c.RateLimit.RedisAddr = v
	}
	if v := os.Getenv("BOOTH_REDIS_PASSWORD"); v != "" {
		c.RateLimit.RedisPassword = v
	}
	if v := os.Getenv("BOOTH_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOOTH_REDIS_DB: %w", err)
		}
		c.RateLimit.RedisDB = n
	}
	if v := os.Getenv("BOOTH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if c.Auth.MaxSessions < 0 {
		return fmt.Errorf("auth.max_sessions must be >= 1")
	}
	if c.Storage.UploadMaxBytes < 0 || c.Storage.ProfileMaxBytes < 0 {
		return fmt.Errorf("storage upload limits must be > 0")
	}
	if c.Imaging.ColorClusters < 0 {
		return fmt.Errorf("imaging.color_clusters must be >= 1")
	}
	if c.Log.Level != "" {
		if _, err := ParseLevel(c.Log.Level); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Name == "" {
		c.Server.Name = "Clothing Booth"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/booth.db"
	}
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = constants.AccessTokenTTL
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = constants.RefreshTokenTTL
	}
	if c.Auth.MaxSessions == 0 {
		c.Auth.MaxSessions = constants.MaxSessionsPerUser
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "./data/uploads"
	}
	if c.Storage.UploadMaxBytes == 0 {
		c.Storage.UploadMaxBytes = constants.UploadMaxBytes
	}
	if c.Storage.ProfileMaxBytes == 0 {
		c.Storage.ProfileMaxBytes = constants.ProfileUploadMaxBytes
	}
	if c.Storage.TempTTL == 0 {
		c.Storage.TempTTL = 24 * time.Hour
	}
	if c.Storage.ReapInterval == 0 {
		c.Storage.ReapInterval = time.Hour
	}
	if c.Imaging.InferenceTimeout == 0 {
		c.Imaging.InferenceTimeout = 20 * time.Second
	}
	if c.Imaging.ColorClusters == 0 {
		c.Imaging.ColorClusters = 3
	}
	if c.RateLimit.Prefix == "" {
		c.RateLimit.Prefix = "booth:rl"
	}
	if c.RateLimit.GlobalPerMinute == 0 {
		c.RateLimit.GlobalPerMinute = 300
	}
	if len(c.Account.DefaultProfilePictures) == 0 {
		c.Account.DefaultProfilePictures = []string{"blue", "green", "orange", "pink", "purple"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", level, err)
	}
	return l, nil
}
