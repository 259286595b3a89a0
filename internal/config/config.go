package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MYBUDGET"

// Config holds all application configuration.
// Values come from defaults, an optional YAML file, .env and MYBUDGET_*
// environment variables, in increasing order of precedence.
type Config struct {
	// View server
	Port     int
	LogLevel string

	// Budgeting API
	APIURL      string
	HTTPTimeout time.Duration

	// Resilience
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Session
	SessionFile string

	// Display
	Currency string
}

// Keys understood by Load.
const (
	KeyAPIURL         = "api_url"
	KeyLogLevel       = "log_level"
	KeyHTTPTimeout    = "http_timeout"
	KeyCacheTTL       = "cache_ttl"
	KeyMaxConcurrency = "max_concurrency"
	KeyOTLPEndpoint   = "otlp_endpoint"
	KeySessionFile    = "session_file"
	KeyPort           = "port"
	KeyCurrency       = "currency"
)

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIURL, "http://localhost:8000/api")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyHTTPTimeout, 10*time.Second)
	v.SetDefault(KeyCacheTTL, 5*time.Minute)
	v.SetDefault(KeyMaxConcurrency, 8)
	v.SetDefault(KeyOTLPEndpoint, "")
	v.SetDefault(KeySessionFile, "")
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyCurrency, "EUR")
}

// LoadDotEnv loads path into the environment without overriding variables
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration into a Config. configFile overrides the
// default location ($HOME/.config/mybudget/config.yaml or ./config.yaml).
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "mybudget"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Port:           v.GetInt(KeyPort),
		LogLevel:       v.GetString(KeyLogLevel),
		APIURL:         strings.TrimRight(v.GetString(KeyAPIURL), "/"),
		HTTPTimeout:    v.GetDuration(KeyHTTPTimeout),
		MaxConcurrency: v.GetInt(KeyMaxConcurrency),
		CacheTTL:       v.GetDuration(KeyCacheTTL),
		OTLPEndpoint:   v.GetString(KeyOTLPEndpoint),
		SessionFile:    v.GetString(KeySessionFile),
		Currency:       strings.ToUpper(v.GetString(KeyCurrency)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("api_url must not be empty"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	return errors.Join(errs...)
}
