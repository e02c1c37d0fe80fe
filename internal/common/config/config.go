// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	HTTP     HTTPConfig              `mapstructure:"http"`
	Queue    QueueConfig             `mapstructure:"queue"`
	Delivery DeliveryConfig          `mapstructure:"delivery"`
	Cache    CacheConfig             `mapstructure:"cache"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdle      int           `mapstructure:"min_idle"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Port        int `mapstructure:"port"`
	ReadTimeout int `mapstructure:"read_timeout"` // milliseconds
}

// QueueConfig holds the settings shared by generate, process, cancel and cleanup.
type QueueConfig struct {
	BatchSize          int           `mapstructure:"batch_size"`
	Concurrency        int           `mapstructure:"concurrency"`
	CancelWindowMonths int           `mapstructure:"cancel_window_months"`
	StaleWindow        time.Duration `mapstructure:"stale_window"`
	BaseURL            string        `mapstructure:"base_url"`
	PlaceholderPattern string        `mapstructure:"placeholder_pattern"`
	DefaultTimezone    string        `mapstructure:"default_timezone"`
	MinifyMarkup       bool          `mapstructure:"minify_markup"`
}

// DeliveryConfig configures the email and in-app transports.
type DeliveryConfig struct {
	ForwardTo string      `mapstructure:"forward_to"`
	Email     EmailConfig `mapstructure:"email"`
	InApp     InAppConfig `mapstructure:"in_app"`
}

type EmailConfig struct {
	Provider       string                `mapstructure:"provider"` // ses | smtp
	Region         string                `mapstructure:"region"`
	DomainSettings []DomainSettingConfig `mapstructure:"domain_settings"`
}

// DomainSettingConfig binds a group of sender addresses to one transport.
type DomainSettingConfig struct {
	FromMatchRegex string `mapstructure:"from_match_regex"`
	IsDefault      bool   `mapstructure:"is_default"`
	Domain         string `mapstructure:"domain"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
}

type InAppConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout int               `mapstructure:"timeout"` // milliseconds
}

// CacheConfig sets the template cache lifetimes.
type CacheConfig struct {
	LocalTTL time.Duration `mapstructure:"local_ttl"`
	RedisTTL time.Duration `mapstructure:"redis_ttl"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
