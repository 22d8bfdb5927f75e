package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the server.
type Config struct {
	Env       string `mapstructure:"env"`
	Addr      string `mapstructure:"addr"`
	PublicDir string `mapstructure:"public_dir"`
	LogLevel  string `mapstructure:"log_level"`
	Codec     string `mapstructure:"codec"` // advertised to clients

	Store    StoreConfig    `mapstructure:"store"`
	Presence PresenceConfig `mapstructure:"presence"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Relay    RelayConfig    `mapstructure:"relay"`
}

type StoreConfig struct {
	Backend    string  `mapstructure:"backend"` // memory, pebble, redis
	PebblePath string  `mapstructure:"pebble_path"`
	RedisURL   string  `mapstructure:"redis_url"`
	WriteRate  float64 `mapstructure:"write_rate"` // writes per second per connection
	WriteBurst int     `mapstructure:"write_burst"`
}

type PresenceConfig struct {
	SweepCron  string        `mapstructure:"sweep_cron"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type AuthConfig struct {
	Driver         string        `mapstructure:"driver"` // sqlite, postgres
	SQLitePath     string        `mapstructure:"sqlite_path"`
	DatabaseURL    string        `mapstructure:"database_url"`
	MinPasswordLen int           `mapstructure:"min_password_len"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
}

type RelayConfig struct {
	SendBuffer int `mapstructure:"send_buffer"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("addr", "127.0.0.1:3000")
	v.SetDefault("public_dir", "./public")
	v.SetDefault("log_level", "info")
	v.SetDefault("codec", "base64")

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.pebble_path", "./data/realtime")
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.write_rate", 20.0)
	v.SetDefault("store.write_burst", 40)

	v.SetDefault("presence.sweep_cron", "* * * * *")
	v.SetDefault("presence.stale_after", 2*time.Minute)

	v.SetDefault("auth.driver", "sqlite")
	v.SetDefault("auth.sqlite_path", "./data/accounts.db")
	v.SetDefault("auth.database_url", "")
	v.SetDefault("auth.min_password_len", 6)
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)

	v.SetDefault("relay.send_buffer", 16)
}

// Load reads config.yaml (if present in dir), then BEARBOO_* environment
// variables. A .env file in the working directory is loaded first.
func Load(dir string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix("BEARBOO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "pebble":
	case "redis":
		if c.Store.RedisURL == "" {
			return errors.New("config: store.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	switch c.Auth.Driver {
	case "sqlite":
	case "postgres":
		if c.Auth.DatabaseURL == "" {
			return errors.New("config: auth.database_url is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown auth driver %q", c.Auth.Driver)
	}
	if c.Auth.MinPasswordLen < 1 {
		return errors.New("config: auth.min_password_len must be positive")
	}
	// Presence and accounts must survive a restart in production.
	if !c.IsDevelopment() && c.Store.Backend == "memory" {
		return errors.New("config: the memory store backend is for development only")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
