// Package config loads Helix settings from an optional helix.yaml file and
// HELIX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Security    SecurityConfig    `mapstructure:"security"`
	Log         LogConfig         `mapstructure:"log"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Lumio       LumioConfig       `mapstructure:"lumio"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP listener. TrustedProxies lists CIDRs whose
// forwarding headers the login rate limiter trusts.
type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	SecureCookies  bool     `mapstructure:"secure_cookies"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type SecurityConfig struct {
	// SecretKey encrypts stored provider credentials. When empty, a key is
	// generated and kept in the database.
	SecretKey string `mapstructure:"secret_key"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type LLMConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	OpenAIBaseURL    string        `mapstructure:"openai_base_url"`
	AnthropicBaseURL string        `mapstructure:"anthropic_base_url"`
}

type LumioConfig struct {
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CacheSizeMB int           `mapstructure:"cache_size_mb"`
	UserAgent   string        `mapstructure:"user_agent"`
}

type NotifyConfig struct {
	// URLs is a comma or newline separated list of shoutrrr service URLs.
	URLs string `mapstructure:"urls"`
}

type MaintenanceConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Retention time.Duration `mapstructure:"retention"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("database.path", "helix.db")
	v.SetDefault("security.secret_key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("llm.timeout", "2m")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic_base_url", "https://api.anthropic.com/v1")
	v.SetDefault("lumio.cache_ttl", "1h")
	v.SetDefault("lumio.cache_size_mb", 16)
	v.SetDefault("lumio.user_agent", "Helix/1.0")
	v.SetDefault("notify.urls", "")
	v.SetDefault("maintenance.interval", "24h")
	v.SetDefault("maintenance.retention", "168h")
}

// Load reads configuration. file names an explicit config file; when empty,
// helix.yaml is searched in the working directory and /etc/helix, and a
// missing file is not an error. Environment variables override the file:
// llm.timeout is read from HELIX_LLM_TIMEOUT.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("helix")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("helix")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/helix")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Address == "":
		return errors.New("config: server.address is required")
	case c.Database.Path == "":
		return errors.New("config: database.path is required")
	case c.LLM.Timeout < 0:
		return errors.New("config: llm.timeout must not be negative")
	case c.Lumio.CacheSizeMB < 0:
		return errors.New("config: lumio.cache_size_mb must not be negative")
	case c.Maintenance.Interval <= 0:
		return errors.New("config: maintenance.interval must be positive")
	}
	return nil
}
