// Package config loads pricehub settings from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/everstacklabs/pricehub/internal/adapter/providers/static"
)

// Config holds all configuration for pricehub.
type Config struct {
	SimilarityThreshold float64           `mapstructure:"similarity_threshold" validate:"gte=0,lte=100"`
	MergeStrategy       string            `mapstructure:"merge_strategy" validate:"oneof=sequential transitive"`
	Sources             []string          `mapstructure:"sources" validate:"min=1,unique,dive,required"`
	DisabledSources     []string          `mapstructure:"disabled_sources"`
	SourceURLs          map[string]string `mapstructure:"source_urls" validate:"dive,url"`
	SourceTimeout       time.Duration     `mapstructure:"source_timeout" validate:"gt=0"`
	RefreshTTL          time.Duration     `mapstructure:"refresh_ttl" validate:"gte=0"`
	RateLimit           float64           `mapstructure:"rate_limit" validate:"gte=0"`
	UserAgent           string            `mapstructure:"user_agent"`
	Cache               CacheConfig       `mapstructure:"cache"`
	Server              ServerConfig      `mapstructure:"server"`
	ExportPath          string            `mapstructure:"export_path" validate:"required"`
	DryRun              bool              `mapstructure:"dry_run"`
	GitHub              GitHubConfig      `mapstructure:"github"`
	StaticSources       []static.Source   `mapstructure:"static_sources" validate:"dive"`
	LogLevel            string            `mapstructure:"log_level" validate:"oneof=debug info warn error"`
}

// CacheConfig selects the HTTP response cache.
type CacheConfig struct {
	Backend  string        `mapstructure:"backend" validate:"oneof=file redis none"`
	Dir      string        `mapstructure:"dir"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
	RedisURL string        `mapstructure:"redis_url" validate:"required_if=Backend redis"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr    string `mapstructure:"addr" validate:"required"`
	GinMode string `mapstructure:"gin_mode" validate:"oneof=debug release test"`
}

// GitHubConfig holds GitHub-related settings.
type GitHubConfig struct {
	Token      string `mapstructure:"token"`
	Owner      string `mapstructure:"owner" validate:"required_with=Token"`
	Repo       string `mapstructure:"repo" validate:"required_with=Token"`
	BaseBranch string `mapstructure:"base_branch"`
}

// DefaultSources is the bundled adapter order.
var DefaultSources = []string{"wolfai", "dmx", "aihubmix", "openrouter", "anthropic", "deepseek"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("similarity_threshold", 75.0)
	v.SetDefault("merge_strategy", "sequential")
	v.SetDefault("sources", DefaultSources)
	v.SetDefault("source_timeout", "30s")
	v.SetDefault("refresh_ttl", "1h")
	v.SetDefault("rate_limit", 10.0)
	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.dir", defaultCacheDir())
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("export_path", "./catalog")
	v.SetDefault("dry_run", false)
	v.SetDefault("github.owner", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.base_branch", "main")
	v.SetDefault("user_agent", "")
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/pricehub")
	}

	v.SetEnvPrefix("PRICEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("github.token", "GITHUB_TOKEN")
	_ = v.BindEnv("cache.redis_url", "REDIS_URL")
	_ = v.BindEnv("server.addr", "PRICEHUB_ADDR")
	_ = v.BindEnv("server.gin_mode", "GIN_MODE")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if !filepath.IsAbs(cfg.ExportPath) {
		abs, err := filepath.Abs(cfg.ExportPath)
		if err != nil {
			return nil, fmt.Errorf("resolving export path: %w", err)
		}
		cfg.ExportPath = abs
	}

	return &cfg, nil
}

// SourceURL returns the configured base URL override for a source, or "".
func (c *Config) SourceURL(id string) string {
	return c.SourceURLs[id]
}

// Enabled reports whether a configured source starts enabled.
func (c *Config) Enabled(id string) bool {
	for _, d := range c.DisabledSources {
		if d == id {
			return false
		}
	}
	return true
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pricehub-cache")
	}
	return filepath.Join(home, ".cache", "pricehub")
}
