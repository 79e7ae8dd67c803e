// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Auth          AuthConfig              `mapstructure:"auth"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Moderation    ModerationConfig        `mapstructure:"moderation"`
	Analytics     AnalyticsConfig         `mapstructure:"analytics"`
	Scheduler     SchedulerConfig         `mapstructure:"scheduler"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name           string `mapstructure:"name"`
	Version        string `mapstructure:"version"`
	Environment    string `mapstructure:"environment"`
	URL            string `mapstructure:"url"`              // public app URL used in email links
	ImageUploadURL string `mapstructure:"image_upload_url"` // external upload service, passed through to clients
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
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
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	JobsIndex string   `mapstructure:"jobs_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Specific Configuration Sections ---

// AuthConfig holds settings for the admin route guard.
type AuthConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	DefaultAdminEmail string `mapstructure:"default_admin_email"`
	AdminRole         string `mapstructure:"admin_role"`

	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"keycloak"`
}

// IntegrationConfig holds settings for email and SMS delivery.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled bool `mapstructure:"enabled"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`

	SMTP SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
	From     string `mapstructure:"from"`
}

// LLMConfig describes one language-model provider.
type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

// APIsConfig holds the two model providers. Moderation speaks the
// OpenAI-compatible chat/completions protocol, analytics speaks generateContent.
type APIsConfig struct {
	Moderation LLMConfig `mapstructure:"moderation"`
	Analytics  LLMConfig `mapstructure:"analytics"`
}

type ModerationConfig struct {
	RedFlags []string `mapstructure:"red_flags"`
}

type AnalyticsConfig struct {
	EstimateTTL int `mapstructure:"estimate_ttl"` // milliseconds
}

type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	PublishSpec  string `mapstructure:"publish_spec"`
	SweepTimeout int    `mapstructure:"sweep_timeout"` // milliseconds
}

// NotificationConfig selects the delivery channel and recipients.
type NotificationConfig struct {
	Provider    string   `mapstructure:"provider"` // smtp | ses
	AdminEmails []string `mapstructure:"admin_emails"`
	SMS         struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"sms"`
}

// AdminEmail returns the primary admin recipient, or "" when none is set.
func (n NotificationConfig) AdminEmail() string {
	if len(n.AdminEmails) == 0 {
		return ""
	}
	return n.AdminEmails[0]
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
