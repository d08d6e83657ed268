package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SANTA_SMS_API_KEY
// or SANTA_SERVER_LISTEN_ADDR.
const EnvPrefix = "SANTA"

// Config is the main configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Draw    DrawConfig    `yaml:"draw"`
	SMS     SMSConfig     `yaml:"sms"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr" split_words:"true" validate:"required"`
	SessionTTL      time.Duration `yaml:"session_ttl" split_words:"true" validate:"gt=0"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" split_words:"true" validate:"gt=0"`
}

// DrawConfig contains draw engine settings
type DrawConfig struct {
	MaxAttempts   int  `yaml:"max_attempts" split_words:"true" validate:"gte=1"`
	// Run exact matching once random attempts are exhausted
	ExactFallback bool `yaml:"exact_fallback" split_words:"true"`
}

// SMSConfig contains SMS gateway settings
type SMSConfig struct {
	APIURL       string        `yaml:"api_url" split_words:"true" validate:"required,url"`
	// Used when a request carries no key
	APIKey       string        `yaml:"api_key" split_words:"true"`
	Delay        time.Duration `yaml:"delay" split_words:"true" validate:"gte=0"`
	Timeout      time.Duration `yaml:"timeout" split_words:"true" validate:"gt=0"`
	MaxRetries   int           `yaml:"max_retries" split_words:"true" validate:"gte=0,lte=5"`
	RetryBackoff time.Duration `yaml:"retry_backoff" split_words:"true" validate:"gte=0"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	// Also log to stdout/stderr
	Verbose bool   `yaml:"verbose" split_words:"true"`
	// Optional log file
	File    string `yaml:"file" split_words:"true"`
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" split_words:"true"`
	Path    string `yaml:"path" split_words:"true" validate:"required,startswith=/"`
}

var validate = validator.New()

// LoadEnvFiles loads .env style files into the process environment.
// Missing files are not an error.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// Load loads configuration from an optional YAML file, then applies environment overrides
func Load(path string) (*Config, error) {
	// Zero is a valid delay and backoff.
	cfg := &Config{
		SMS: SMSConfig{
			Delay:        500 * time.Millisecond,
			RetryBackoff: time.Second,
		},
		Logging: LoggingConfig{Verbose: true},
		Metrics: MetricsConfig{Enabled: true},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = time.Hour
	}
	if c.Server.CleanupInterval == 0 {
		c.Server.CleanupInterval = 10 * time.Minute
	}

	if c.Draw.MaxAttempts == 0 {
		c.Draw.MaxAttempts = 1000
	}

	if c.SMS.APIURL == "" {
		c.SMS.APIURL = "https://api.comtele.com.br/v1/sms"
	}
	if c.SMS.Timeout == 0 {
		c.SMS.Timeout = 30 * time.Second
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return validate.Struct(c)
}
