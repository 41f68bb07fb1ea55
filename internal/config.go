package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/foodly/internal/catalog"
	"github.com/starford/foodly/internal/gate"
	"github.com/starford/foodly/internal/storage"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	API     APIConfig         `yaml:"api"`
	Session SessionConfig     `yaml:"session"`
	Cache   CacheConfig       `yaml:"cache"`
	MockAPI MockAPIConfig     `yaml:"mockapi"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.MockAPI.Validate(); err != nil {
		return fmt.Errorf("mockapi: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// APIConfig describes the recipes backend.
type APIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
}

// Validate validates the API configuration.
func (c *APIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RatePerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// SessionConfig selects where the bearer token is persisted.
//
// Store is "file" (default) or "sqlite". A leading "~/" in Path is expanded
// to the user's home directory.
type SessionConfig struct {
	Store string `yaml:"store"`
	Path  string `yaml:"path"`
}

// Validate validates the session configuration.
func (c *SessionConfig) Validate() error {
	if c.Store == "" {
		c.Store = storage.KindFile
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Store, validation.Required, validation.In(storage.KindFile, storage.KindSQLite)),
		validation.Field(&c.Path, validation.Required),
	)
}

// TokenPath returns Path with "~" expanded.
func (c *SessionConfig) TokenPath() string {
	rest, ok := strings.CutPrefix(c.Path, "~/")
	if !ok {
		return c.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return rest
	}
	return filepath.Join(home, rest)
}

// CacheConfig tunes the recipe caches.
type CacheConfig struct {
	StaleWindow time.Duration `yaml:"stale_window"`
	BurstWindow time.Duration `yaml:"burst_window"`
	EntitySize  int           `yaml:"entity_size"`
	PerPage     int           `yaml:"per_page"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StaleWindow, validation.Min(time.Duration(0))),
		validation.Field(&c.BurstWindow, validation.Min(time.Duration(0))),
		validation.Field(&c.EntitySize, validation.Min(0)),
		validation.Field(&c.PerPage, validation.Min(0), validation.Max(100)),
	)
}

// Catalog converts the section to catalog settings. Zero values fall back to
// the catalog defaults.
func (c *CacheConfig) Catalog() catalog.Config {
	return catalog.Config{
		StaleWindow: c.StaleWindow,
		BurstWindow: c.BurstWindow,
		PerPage:     c.PerPage,
		EntitySize:  c.EntitySize,
	}
}

// MockAPIConfig configures the bundled development backend.
type MockAPIConfig struct {
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"`
}

// Address returns the listen address.
func (c *MockAPIConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the mock backend configuration.
func (c *MockAPIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		API: APIConfig{
			BaseURL:       "http://localhost:8000",
			Timeout:       15 * time.Second,
			RatePerSecond: 10,
			Burst:         5,
		},
		Session: SessionConfig{
			Store: storage.KindFile,
			Path:  "~/.foodly/token",
		},
		Cache: CacheConfig{
			StaleWindow: gate.DefaultStaleWindow,
			BurstWindow: gate.DefaultBurstWindow,
			EntitySize:  64,
			PerPage:     12,
		},
		MockAPI: MockAPIConfig{
			Port: 8000,
		},
	}
}
