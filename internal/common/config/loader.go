// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return build(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
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
			// unset placeholders collapse to "" so the fallbacks below can fill them
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig falls back to the plain variable names used by the
// deployment environment when the yaml leaves a value empty.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Integrations.SMTP.Host, "SMTP_HOST")
	setIfEmpty(&cfg.Integrations.SMTP.Username, "SMTP_USER")
	setIfEmpty(&cfg.Integrations.SMTP.Password, "SMTP_PASSWORD")
	setIfEmpty(&cfg.Integrations.SMTP.From, "SMTP_FROM")
	if cfg.Integrations.SMTP.Port == 0 {
		if port, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
			cfg.Integrations.SMTP.Port = port
		}
	}

	if len(cfg.Notifications.AdminEmails) == 0 {
		if val := os.Getenv("ADMIN_EMAIL"); val != "" {
			for _, addr := range strings.Split(val, ",") {
				if addr = strings.TrimSpace(addr); addr != "" {
					cfg.Notifications.AdminEmails = append(cfg.Notifications.AdminEmails, addr)
				}
			}
		}
	}

	setIfEmpty(&cfg.App.URL, "APP_URL")
	setIfEmpty(&cfg.App.ImageUploadURL, "IMAGE_UPLOAD_URL")
	setIfEmpty(&cfg.APIs.Moderation.APIKey, "GROQ_API_KEY")
	setIfEmpty(&cfg.APIs.Analytics.APIKey, "GEMINI_API_KEY")
	setIfEmpty(&cfg.Auth.DefaultAdminEmail, "DEFAULT_ADMIN_EMAIL")

	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
}

func setIfEmpty(field *string, envKey string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "signalx"
	}
	if cfg.App.URL == "" {
		cfg.App.URL = "http://localhost:3000"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
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
	if cfg.Database.Elasticsearch.JobsIndex == "" {
		cfg.Database.Elasticsearch.JobsIndex = "signalx-jobs"
	}

	if cfg.Integrations.SMTP.Port == 0 {
		cfg.Integrations.SMTP.Port = 587
	}
	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = "ap-south-1"
	}

	if cfg.APIs.Moderation.BaseURL == "" {
		cfg.APIs.Moderation.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.APIs.Moderation.Model == "" {
		cfg.APIs.Moderation.Model = "llama-3.3-70b-versatile"
	}
	if cfg.APIs.Moderation.Timeout == 0 {
		cfg.APIs.Moderation.Timeout = 20000
	}
	if cfg.APIs.Analytics.BaseURL == "" {
		cfg.APIs.Analytics.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.APIs.Analytics.Model == "" {
		cfg.APIs.Analytics.Model = "gemini-1.5-flash"
	}
	if cfg.APIs.Analytics.Timeout == 0 {
		cfg.APIs.Analytics.Timeout = 30000
	}

	if cfg.Analytics.EstimateTTL == 0 {
		cfg.Analytics.EstimateTTL = 6 * 60 * 60 * 1000
	}

	if cfg.Scheduler.PublishSpec == "" {
		cfg.Scheduler.PublishSpec = "@every 1m"
	}
	if cfg.Scheduler.SweepTimeout == 0 {
		cfg.Scheduler.SweepTimeout = 30000
	}

	if cfg.Notifications.Provider == "" {
		cfg.Notifications.Provider = "smtp"
	}
	if cfg.Auth.AdminRole == "" {
		cfg.Auth.AdminRole = "admin"
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
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
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

// validateConfig validates critical configuration fields. Missing model keys
// are allowed: moderation then routes every posting to manual review.
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when elasticsearch is enabled")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	switch cfg.Notifications.Provider {
	case "smtp", "ses":
	default:
		return fmt.Errorf("notifications.provider must be smtp or ses, got %q", cfg.Notifications.Provider)
	}

	return nil
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
