package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the optional YAML file read by Load.
const DefaultConfigFile = "branch-dashboard.yaml"

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration.
// Precedence: defaults < YAML file < environment variables.
type Config struct {
	Port int `yaml:"port"`

	Logging       Logging       `yaml:"logging"`
	Session       Session       `yaml:"session"`
	Notifications Notifications `yaml:"notifications"`
	Fixture       Fixture       `yaml:"fixture"`
	Workspaces    Workspaces    `yaml:"workspaces"`
}

// Logging configures the structured logger.
type Logging struct {
	Level   string `yaml:"level"`  // debug, info, warn, error
	Format  string `yaml:"format"` // json or text
	Service string `yaml:"service"`
}

// Session configures the demo session cookie.
type Session struct {
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
}

// Notifications configures the toast queue.
type Notifications struct {
	TTL time.Duration `yaml:"ttl"`
}

// Fixture configures where branch records come from.
type Fixture struct {
	// Path overrides the bundled fixture when set.
	Path            string `yaml:"path"`
	RefreshSentinel string `yaml:"refresh_sentinel"`
	// Timezone is used to interpret the calendar days of date filters.
	Timezone string `yaml:"timezone"`
}

// Workspaces bounds the number of per-session workspaces kept in memory.
type Workspaces struct {
	MaxEntries int64 `yaml:"max_entries"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port: 8080,
		Logging: Logging{
			Level:   "info",
			Format:  "json",
			Service: "branch-dashboard",
		},
		Session: Session{
			CookieName: "user",
			TTL:        7 * 24 * time.Hour,
		},
		Notifications: Notifications{
			TTL: 4000 * time.Millisecond,
		},
		Fixture: Fixture{
			RefreshSentinel: "feature/payment-gateway",
			Timezone:        "Local",
		},
		Workspaces: Workspaces{
			MaxEntries: 1000,
		},
	}
}

// Load loads configuration from DefaultConfigFile (or CONFIG_FILE) and the environment.
func Load() (*Config, error) {
	return LoadFrom(getEnvOrDefault("CONFIG_FILE", DefaultConfigFile))
}

// LoadFrom loads configuration from the given YAML path and the environment.
// A missing YAML file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, path); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.Fixture.Timezone) {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Fixture.Timezone)
	}
}

// HasFixtureOverride returns true if an external fixture file is configured.
func (c *Config) HasFixtureOverride() bool {
	return c.Fixture.Path != ""
}

func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Unparsable values are ignored and the previous value is kept.
func loadEnv(cfg *Config) {
	setInt(&cfg.Port, "PORT")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Session.CookieName, "SESSION_COOKIE_NAME")
	setDuration(&cfg.Session.TTL, "SESSION_TTL")
	setBool(&cfg.Session.Secure, "SESSION_COOKIE_SECURE")
	setDuration(&cfg.Notifications.TTL, "NOTIFICATION_TTL")
	setString(&cfg.Fixture.Path, "FIXTURE_PATH")
	setString(&cfg.Fixture.RefreshSentinel, "REFRESH_SENTINEL")
	setString(&cfg.Fixture.Timezone, "DASHBOARD_TIMEZONE")
	setInt64(&cfg.Workspaces.MaxEntries, "WORKSPACE_MAX_ENTRIES")
}

func validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.Port)
	}
	if cfg.Session.CookieName == "" {
		return fmt.Errorf("%w: session.cookie_name is required", ErrInvalidConfig)
	}
	if cfg.Session.TTL <= 0 {
		return fmt.Errorf("%w: session.ttl must be positive", ErrInvalidConfig)
	}
	if cfg.Notifications.TTL <= 0 {
		return fmt.Errorf("%w: notifications.ttl must be positive", ErrInvalidConfig)
	}
	if cfg.Workspaces.MaxEntries < 1 {
		return fmt.Errorf("%w: workspaces.max_entries must be >= 1", ErrInvalidConfig)
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("%w: fixture.timezone: %v", ErrInvalidConfig, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
