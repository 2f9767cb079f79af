package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Sembiance/webrouter"
)

// Config is the server configuration. Values come from, in increasing precedence:
// defaults, the YAML config file, WEBROUTER_* environment variables (a .env file in
// the working directory is loaded first), and command-line flags.
type Config struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Templates   string        `mapstructure:"templates"`

	Uploads struct {
		Dir             string `mapstructure:"dir"`
		MaxFieldsSize   int64  `mapstructure:"max_fields_size"`
		MaxFileSize     int64  `mapstructure:"max_file_size"`
		StripExtensions bool   `mapstructure:"strip_extensions"`
	} `mapstructure:"uploads"`

	Log struct {
		Level    string `mapstructure:"level"`
		Format   string `mapstructure:"format"`
		Requests int    `mapstructure:"requests"`
	} `mapstructure:"log"`

	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`

	Database struct {
		Enabled  bool   `mapstructure:"enabled"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	DisableCache bool `mapstructure:"disable_cache"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 46728)
	v.SetDefault("idle_timeout", 0)
	v.SetDefault("templates", "templates")
	v.SetDefault("uploads.dir", "")
	v.SetDefault("uploads.max_fields_size", 50*1024*1024)
	v.SetDefault("uploads.max_file_size", 200*1024*1024)
	v.SetDefault("uploads.strip_extensions", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.requests", 0)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("disable_cache", false)

	v.SetEnvPrefix("WEBROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads configFile (when non-empty) on top of the defaults held by v.
func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that would otherwise only fail at listen time.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout must not be negative")
	}
	if c.Uploads.MaxFieldsSize <= 0 || c.Uploads.MaxFileSize <= 0 {
		return fmt.Errorf("upload ceilings must be positive")
	}
	if c.Database.Enabled && (c.Database.Port <= 0 || c.Database.Port > 65535) {
		return fmt.Errorf("database port %d out of range", c.Database.Port)
	}
	return nil
}

// databaseConfiguration returns the pool settings handed to the router, or nil when
// the database is disabled. DATABASE_* variables override the configured values.
func (c *Config) databaseConfiguration() *webrouter.DatabaseConfiguration {
	if !c.Database.Enabled {
		return nil
	}
	db := webrouter.DatabaseFromEnvironmentWithFallback(
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Name,
	)
	return &db
}
