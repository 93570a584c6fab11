package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Mongo  MongoConfig  `yaml:"mongo"`
	IGDB   IGDBConfig   `yaml:"igdb"`
	Clone  CloneConfig  `yaml:"clone"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// MongoConfig contains the mirror database settings.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// IGDBConfig contains upstream catalog settings. Credentials and the webhook
// secret are env-only and never read from YAML.
type IGDBConfig struct {
	BaseURL           string   `yaml:"base_url"`
	ClientID          string   `yaml:"-"` // env-only: IGDB_CLIENT_ID
	Token             string   `yaml:"-"` // env-only: IGDB_TOKEN
	WebhookRoot       string   `yaml:"webhook_root"`
	WebhookSecret     string   `yaml:"-"` // env-only: LUDEX_WEBHOOK_SECRET
	RequestTimeout    Duration `yaml:"request_timeout"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
}

// CloneConfig contains mirror refresh settings. Interval 0 disables the
// periodic reclone ticker.
type CloneConfig struct {
	OnStart  bool     `yaml:"on_start"`
	Interval Duration `yaml:"interval"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	// Determine config path
	configPath := getEnv("LUDEX_CONFIG_PATH", "config/ludex.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path. Used in tests
// and when the caller already knows the file location.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	// Load YAML file (file must exist for this function)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8085,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "ludex",
		},
		IGDB: IGDBConfig{
			BaseURL:           "https://api.igdb.com/v4",
			RequestTimeout:    Duration(30 * time.Second),
			RequestsPerSecond: 4,
		},
		Clone: CloneConfig{
			OnStart:  false,
			Interval: 0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file is OK; use defaults
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("LUDEX_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LUDEX_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = Duration(d)
		}
	}
	if v := os.Getenv("LUDEX_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = Duration(d)
		}
	}
	if v := os.Getenv("LUDEX_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = Duration(d)
		}
	}

	// Mongo
	if v := os.Getenv("LUDEX_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("LUDEX_MONGO_DATABASE"); v != "" {
		cfg.Mongo.Database = v
	}

	// Upstream catalog (IGDB_* follow the upstream's own naming)
	if v := os.Getenv("LUDEX_IGDB_BASE_URL"); v != "" {
		cfg.IGDB.BaseURL = v
	}
	if v := os.Getenv("IGDB_CLIENT_ID"); v != "" {
		cfg.IGDB.ClientID = v
	}
	if v := os.Getenv("IGDB_TOKEN"); v != "" {
		cfg.IGDB.Token = v
	}
	if v := os.Getenv("LUDEX_WEBHOOK_ROOT"); v != "" {
		cfg.IGDB.WebhookRoot = v
	}
	if v := os.Getenv("LUDEX_WEBHOOK_SECRET"); v != "" {
		cfg.IGDB.WebhookSecret = v
	}
	if v := os.Getenv("LUDEX_IGDB_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.IGDB.RequestTimeout = Duration(d)
		}
	}
	if v := os.Getenv("LUDEX_IGDB_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.IGDB.RequestsPerSecond = f
		}
	}

	// Clone
	if v := os.Getenv("LUDEX_CLONE_ON_START"); v != "" {
		cfg.Clone.OnStart = v == "true" || v == "1"
	}
	if v := os.Getenv("LUDEX_CLONE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Clone.Interval = Duration(d)
		}
	}

	// Log
	if v := os.Getenv("LUDEX_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LUDEX_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// validate checks that required configuration values are set. Upstream
// credentials are deliberately not required here: the query surface works
// against whatever is mirrored, and clone/webhook paths report missing
// credentials when they are actually used.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri is required")
	}
	if c.Mongo.Database == "" {
		return errors.New("mongo.database is required")
	}
	if c.IGDB.BaseURL == "" {
		return errors.New("igdb.base_url is required")
	}
	if c.IGDB.RequestsPerSecond <= 0 {
		return errors.New("igdb.requests_per_second must be positive")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
