// internal/common/config/loader.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// ENV override like DATABASE_POSTGRES_HOST
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment specific overlay, optional
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if err := overrideEmptyConfig(&cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the first location that has one.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Printf("Loaded .env from: %s\n", path)
				return
			}
		}
	}

	fmt.Printf(".env file not found, using system environment variables\n")
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets and deployment switches from the environment.
func overrideEmptyConfig(cfg *Config) error {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}

	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		for i := range cfg.Delivery.Email.DomainSettings {
			if cfg.Delivery.Email.DomainSettings[i].Password == "" {
				cfg.Delivery.Email.DomainSettings[i].Password = val
			}
		}
	}

	if cfg.Delivery.ForwardTo == "" {
		cfg.Delivery.ForwardTo = os.Getenv("FORWARD_TO")
	}

	if raw := os.Getenv("IN_APP_MESSAGE_API_HEADERS"); raw != "" && len(cfg.Delivery.InApp.Headers) == 0 {
		headers := map[string]string{}
		if err := json.Unmarshal([]byte(raw), &headers); err != nil {
			return fmt.Errorf("IN_APP_MESSAGE_API_HEADERS is not a JSON object: %w", err)
		}
		cfg.Delivery.InApp.Headers = headers
	}
	if cfg.Delivery.InApp.URL == "" {
		cfg.Delivery.InApp.URL = os.Getenv("IN_APP_MESSAGE_API_URL")
	}
	return nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if err := overrideEmptyConfig(&cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15000
	}

	if cfg.Queue.BatchSize == 0 {
		cfg.Queue.BatchSize = 50
	}
	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = 8
	}
	if cfg.Queue.CancelWindowMonths == 0 {
		cfg.Queue.CancelWindowMonths = 2
	}
	if cfg.Queue.StaleWindow == 0 {
		cfg.Queue.StaleWindow = 7 * 24 * time.Hour
	}
	if cfg.Queue.PlaceholderPattern == "" {
		cfg.Queue.PlaceholderPattern = "@contactid"
	}
	if cfg.Queue.DefaultTimezone == "" {
		cfg.Queue.DefaultTimezone = "Asia/Yerevan"
	}

	if cfg.Delivery.Email.Provider == "" {
		cfg.Delivery.Email.Provider = "ses"
	}
	if cfg.Delivery.InApp.Timeout == 0 {
		cfg.Delivery.InApp.Timeout = 10000
	}

	if cfg.Database.Redis.PoolSize == 0 {
		cfg.Database.Redis.PoolSize = 10
	}
	if cfg.Database.Redis.DialTimeout == 0 {
		cfg.Database.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Database.Redis.ReadTimeout == 0 {
		cfg.Database.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Database.Redis.WriteTimeout == 0 {
		cfg.Database.Redis.WriteTimeout = cfg.Database.Redis.ReadTimeout
	}

	if cfg.Cache.LocalTTL == 0 {
		cfg.Cache.LocalTTL = time.Minute
	}
	if cfg.Cache.RedisTTL == 0 {
		cfg.Cache.RedisTTL = 10 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig reports every missing or malformed critical field at once.
func validateConfig(cfg *Config) error {
	var result *multierror.Error

	if cfg.Camunda.BrokerAddress == "" {
		result = multierror.Append(result, fmt.Errorf("camunda.broker_address is required"))
	}
	if cfg.Database.Postgres.Host == "" {
		result = multierror.Append(result, fmt.Errorf("database.postgres.host is required"))
	}
	if cfg.Database.Postgres.Database == "" {
		result = multierror.Append(result, fmt.Errorf("database.postgres.database is required"))
	}
	if cfg.Database.Postgres.User == "" {
		result = multierror.Append(result, fmt.Errorf("database.postgres.user is required"))
	}
	if cfg.Database.Redis.Address == "" {
		result = multierror.Append(result, fmt.Errorf("database.redis.address is required"))
	}

	switch cfg.Delivery.Email.Provider {
	case "ses", "smtp":
	default:
		result = multierror.Append(result, fmt.Errorf("delivery.email.provider must be ses or smtp, got %q", cfg.Delivery.Email.Provider))
	}

	defaults := 0
	for i, ds := range cfg.Delivery.Email.DomainSettings {
		if ds.IsDefault {
			defaults++
		}
		if ds.FromMatchRegex != "" {
			if _, err := regexp.Compile(ds.FromMatchRegex); err != nil {
				result = multierror.Append(result, fmt.Errorf("delivery.email.domain_settings[%d].from_match_regex: %w", i, err))
			}
		}
	}
	if defaults > 1 {
		result = multierror.Append(result, fmt.Errorf("delivery.email.domain_settings has %d default entries", defaults))
	}

	if _, err := time.LoadLocation(cfg.Queue.DefaultTimezone); err != nil {
		result = multierror.Append(result, fmt.Errorf("queue.default_timezone: %w", err))
	}

	return result.ErrorOrNil()
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
