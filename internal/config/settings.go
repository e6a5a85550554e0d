package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LogSettings configuration for logging
type LogSettings struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
	Pretty  bool   `mapstructure:"pretty"`
}

// CacheSettings configuration for the search result cache
type CacheSettings struct {
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// SearchSettings configuration for search execution
type SearchSettings struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	DefaultLimit      int           `mapstructure:"default_limit"`
	AutoCompleteLimit int           `mapstructure:"autocomplete_limit"`
}

// MetricsSettings configuration for the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Settings application settings
type Settings struct {
	DBPath  string          `mapstructure:"db_path"`
	Log     LogSettings     `mapstructure:"log"`
	Cache   CacheSettings   `mapstructure:"cache"`
	Search  SearchSettings  `mapstructure:"search"`
	Metrics MetricsSettings `mapstructure:"metrics"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("db_path", defaultDBPath())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.pretty", false)
	v.SetDefault("cache.capacity", 1000)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("search.timeout", 5*time.Second)
	v.SetDefault("search.default_limit", 10)
	v.SetDefault("search.autocomplete_limit", 10)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", "127.0.0.1:9190")

	// Environment variables
	v.SetEnvPrefix("RECALLKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("db_path", "RECALLKIT_DB_PATH")
	_ = v.BindEnv("log.level", "RECALLKIT_LOG_LEVEL")
	_ = v.BindEnv("log.file", "RECALLKIT_LOG_FILE")
	_ = v.BindEnv("log.console", "RECALLKIT_LOG_CONSOLE")
	_ = v.BindEnv("log.pretty", "RECALLKIT_LOG_PRETTY")
	_ = v.BindEnv("cache.capacity", "RECALLKIT_CACHE_CAPACITY")
	_ = v.BindEnv("cache.ttl", "RECALLKIT_CACHE_TTL")
	_ = v.BindEnv("search.timeout", "RECALLKIT_SEARCH_TIMEOUT")
	_ = v.BindEnv("search.default_limit", "RECALLKIT_SEARCH_DEFAULT_LIMIT")
	_ = v.BindEnv("search.autocomplete_limit", "RECALLKIT_SEARCH_AUTOCOMPLETE_LIMIT")
	_ = v.BindEnv("metrics.enabled", "RECALLKIT_METRICS_ENABLED")
	_ = v.BindEnv("metrics.addr", "RECALLKIT_METRICS_ADDR")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("db_path", flags.Lookup("db-path"))
		_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
		_ = v.BindPFlag("log.file", flags.Lookup("log-file"))
		_ = v.BindPFlag("cache.capacity", flags.Lookup("cache-capacity"))
		_ = v.BindPFlag("cache.ttl", flags.Lookup("cache-ttl"))
		_ = v.BindPFlag("search.timeout", flags.Lookup("search-timeout"))
		_ = v.BindPFlag("metrics.enabled", flags.Lookup("metrics-enabled"))
		_ = v.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	settings.DBPath = expandHomeDir(settings.DBPath)
	settings.Log.File = expandHomeDir(settings.Log.File)

	return &settings, nil
}

// defaultDBPath returns the default database location
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "recallkit.db"
	}
	return filepath.Join(home, ".recallkit", "recallkit.db")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// ValidateSettings checks for invalid or self-contradictory configuration
func ValidateSettings(s *Settings) error {
	if s.DBPath == "" {
		return errors.New("db-path cannot be empty")
	}
	if s.Cache.Capacity <= 0 {
		return errors.New("cache-capacity must be positive")
	}
	if s.Cache.TTL <= 0 {
		return errors.New("cache-ttl must be positive")
	}
	if s.Search.Timeout <= 0 {
		return errors.New("search-timeout must be positive")
	}
	if s.Search.DefaultLimit <= 0 {
		return errors.New("search-default-limit must be positive")
	}
	if s.Search.AutoCompleteLimit <= 0 {
		return errors.New("search-autocomplete-limit must be positive")
	}
	if s.Metrics.Enabled && s.Metrics.Addr == "" {
		return errors.New("metrics-enabled requires metrics-addr")
	}
	return nil
}
