// Package config provides application configuration management using Viper.
// Configuration is loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Breaker    BreakerConfig    `mapstructure:"circuit_breaker"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Refresh    RefreshConfig    `mapstructure:"refresh"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name  string `mapstructure:"name"`
	Env   string `mapstructure:"env"` // development, staging, production
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Name         string        `mapstructure:"name"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	SSLMode      string        `mapstructure:"ssl_mode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis connection settings, shared by the durable cache
// and the refresh job's distributed lock.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds caching settings.
type CacheConfig struct {
	ComponentTTL     time.Duration `mapstructure:"component_ttl"`
	CategoryTTL      time.Duration `mapstructure:"category_ttl"`
	MaxMemoryEntries int           `mapstructure:"max_memory_entries"`
	KeyPrefix        string        `mapstructure:"key_prefix"`
}

// AggregatorConfig holds settings for talking to the sources.
type AggregatorConfig struct {
	Parallel       bool          `mapstructure:"parallel"`
	PageDelay      time.Duration `mapstructure:"page_delay"` // politeness delay between listing pages
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	Retry          RetryConfig   `mapstructure:"retry"`
}

// RetryConfig holds transport-level retry settings.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	WaitTime    time.Duration `mapstructure:"wait_time"`
	MaxWaitTime time.Duration `mapstructure:"max_wait_time"`
}

// BreakerConfig holds per-source circuit breaker settings.
type BreakerConfig struct {
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	Cooldown            time.Duration `mapstructure:"cooldown"`
	HalfOpenSuccesses   uint32        `mapstructure:"half_open_successes"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	Secret string `mapstructure:"secret"` // HS256 secret shared with the account service
}

// RefreshConfig holds background cache refresh settings.
type RefreshConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	OnStartup bool          `mapstructure:"on_startup"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// SentryConfig holds Sentry error tracking settings.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Load reads configuration from file and environment variables.
// Priority: env vars > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found, continue with defaults + env vars
	}

	// Environment variable settings
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "component-catalog-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.debug", true)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "component_catalog")
	v.SetDefault("database.user", "app")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", "5m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Cache defaults
	v.SetDefault("cache.component_ttl", "10m")
	v.SetDefault("cache.category_ttl", "24h")
	v.SetDefault("cache.max_memory_entries", 256)
	v.SetDefault("cache.key_prefix", "catalog")

	// Aggregator defaults
	v.SetDefault("aggregator.parallel", true)
	v.SetDefault("aggregator.page_delay", "750ms")
	v.SetDefault("aggregator.request_timeout", "10s")
	v.SetDefault("aggregator.user_agent", "component-catalog-service/1.0")
	v.SetDefault("aggregator.retry.max_attempts", 3)
	v.SetDefault("aggregator.retry.wait_time", "1s")
	v.SetDefault("aggregator.retry.max_wait_time", "5s")

	// Circuit breaker defaults
	v.SetDefault("circuit_breaker.consecutive_failures", 5)
	v.SetDefault("circuit_breaker.cooldown", "60s")
	v.SetDefault("circuit_breaker.half_open_successes", 2)

	// Auth defaults
	v.SetDefault("auth.secret", "")

	// Refresh defaults
	v.SetDefault("refresh.enabled", true)
	v.SetDefault("refresh.interval", "10m")
	v.SetDefault("refresh.on_startup", false)
	v.SetDefault("refresh.timeout", "5m")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")

	// Sentry defaults
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)
}
