package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Gateway        GatewayConfig
	Reconciliation ReconciliationConfig
	Secrets        SecretsConfig
	Notifications  NotificationsConfig
	Audit          AuditConfig
	Logger         LoggerConfig
}

// ServerConfig holds the ops HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int `validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	User     string `validate:"required"`
	Password string
	Database string `validate:"required"`
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int32  `validate:"min=1"`
	MinConns int32  `validate:"min=0"`
}

// GatewayConfig holds EcorePay payment method configuration
type GatewayConfig struct {
	URL           string `validate:"required_if=Active true,omitempty,url"`
	AccountID     string
	AccountAuth   string
	MCAccountID   string
	MCAccountAuth string
	RepeatTag     string        `validate:"required"`
	Timeout       time.Duration `validate:"min=1s,max=40s"`
	Active        bool
	Async         bool
	RefundEnabled bool
	// InsecureSkipVerify turns TLS verification off for the gateway. Opt-in only.
	InsecureSkipVerify bool
	// SynthesizeDOB fills a random adult birth date for US orders without one
	SynthesizeDOB bool
}

// ReconciliationConfig tunes the sweep
type ReconciliationConfig struct {
	Schedule        string `validate:"required"`
	OnSyncError     string `validate:"oneof=ignore hold"`
	CronSecret      string
	SettledStatuses []string `validate:"min=1,dive,required"`
	BatchSize       int      `validate:"min=1"`
	RatePerSecond   float64  `validate:"min=0"`
	AdvisoryLocks   bool
	// SchedulerEnabled runs the sweep in-process on Schedule
	SchedulerEnabled bool
}

// SecretsConfig selects where gateway credentials come from
type SecretsConfig struct {
	Backend       string `validate:"oneof=env local vault aws gcp"`
	Prefix        string
	CacheTTL      time.Duration
	LocalPath     string `validate:"required_if=Backend local"`
	VaultAddress  string `validate:"required_if=Backend vault,omitempty,url"`
	VaultAuth     string `validate:"omitempty,oneof=token approle"`
	VaultToken    string
	VaultRoleID   string
	VaultSecretID string
	VaultMount    string
	VaultKV       string `validate:"omitempty,oneof=v1 v2"`
	AWSRegion     string `validate:"required_if=Backend aws"`
	AWSProfile    string
	AWSEndpoint   string
	GCPProjectID  string `validate:"required_if=Backend gcp"`
}

// NotificationsConfig holds Slack alert configuration
type NotificationsConfig struct {
	SlackWebhookURL string `validate:"required_if=Enabled true,omitempty,url"`
	SlackChannel    string
	SlackUsername   string
	Enabled         bool
}

// AuditConfig holds the MongoDB audit trail configuration. An empty URI
// disables the audit trail.
type AuditConfig struct {
	MongoURI   string
	Database   string `validate:"required_with=MongoURI"`
	Collection string `validate:"required_with=MongoURI"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string `validate:"oneof=debug info warn error"`
	Development bool
}

// LoadFromEnv loads configuration from the environment, reading .env first when present
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "magento"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 2)),
		},
		Gateway: GatewayConfig{
			URL:                getEnv("ECOREPAY_GATEWAY_URL", ""),
			AccountID:          getEnv("ECOREPAY_ACID", ""),
			AccountAuth:        getEnv("ECOREPAY_AUTHCODE", ""),
			MCAccountID:        getEnv("ECOREPAY_ACID_MC", ""),
			MCAccountAuth:      getEnv("ECOREPAY_AUTHCODE_MC", ""),
			RepeatTag:          getEnv("ECOREPAY_REPEAT_TAG", "Item"),
			Timeout:            getEnvAsDuration("ECOREPAY_TIMEOUT", 40*time.Second),
			Active:             getEnvAsBool("ECOREPAY_ACTIVE", false),
			Async:              getEnvAsBool("ECOREPAY_ASYNC", false),
			RefundEnabled:      getEnvAsBool("ECOREPAY_REFUND_ENABLED", true),
			InsecureSkipVerify: getEnvAsBool("ECOREPAY_TLS_INSECURE", false),
			SynthesizeDOB:      getEnvAsBool("ECOREPAY_SYNTHESIZE_DOB", true),
		},
		Reconciliation: ReconciliationConfig{
			Schedule:         getEnv("RECONCILE_SCHEDULE", "*/15 * * * *"),
			OnSyncError:      strings.ToLower(getEnv("RECONCILE_ON_SYNC_ERROR", "ignore")),
			CronSecret:       getEnv("CRON_SECRET", ""),
			SettledStatuses:  getEnvAsList("RECONCILE_SETTLED_STATUSES", []string{"Processed"}),
			BatchSize:        getEnvAsInt("RECONCILE_BATCH_SIZE", 500),
			RatePerSecond:    getEnvAsFloat("RECONCILE_RATE_PER_SECOND", 0),
			AdvisoryLocks:    getEnvAsBool("RECONCILE_ADVISORY_LOCKS", true),
			SchedulerEnabled: getEnvAsBool("RECONCILE_SCHEDULER_ENABLED", true),
		},
		Secrets: SecretsConfig{
			Backend:       strings.ToLower(getEnv("SECRETS_BACKEND", "env")),
			Prefix:        getEnv("SECRETS_PREFIX", "ecorepay/credentials"),
			CacheTTL:      getEnvAsDuration("SECRETS_CACHE_TTL", 5*time.Minute),
			LocalPath:     getEnv("SECRETS_LOCAL_PATH", ""),
			VaultAddress:  getEnv("VAULT_ADDR", ""),
			VaultAuth:     getEnv("VAULT_AUTH_METHOD", "token"),
			VaultToken:    getEnv("VAULT_TOKEN", ""),
			VaultRoleID:   getEnv("VAULT_ROLE_ID", ""),
			VaultSecretID: getEnv("VAULT_SECRET_ID", ""),
			VaultMount:    getEnv("VAULT_MOUNT_PATH", "secret"),
			VaultKV:       getEnv("VAULT_KV_VERSION", "v2"),
			AWSRegion:     getEnv("AWS_REGION", ""),
			AWSProfile:    getEnv("AWS_PROFILE", ""),
			AWSEndpoint:   getEnv("AWS_SECRETS_ENDPOINT", ""),
			GCPProjectID:  getEnv("GCP_PROJECT_ID", ""),
		},
		Notifications: NotificationsConfig{
			SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
			SlackChannel:    getEnv("SLACK_CHANNEL", ""),
			SlackUsername:   getEnv("SLACK_USERNAME", ""),
			Enabled:         getEnvAsBool("SLACK_NOTIFICATIONS_ENABLED", false),
		},
		Audit: AuditConfig{
			MongoURI:   getEnv("AUDIT_MONGO_URI", ""),
			Database:   getEnv("AUDIT_MONGO_DATABASE", "ecorepay"),
			Collection: getEnv("AUDIT_MONGO_COLLECTION", "ecorepay_reconciliation_audit"),
		},
		Logger: LoggerConfig{
			Level:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct rules plus the rules that span sections
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Gateway.Active && c.Secrets.Backend == "env" {
		if c.Gateway.AccountID == "" || c.Gateway.AccountAuth == "" {
			return fmt.Errorf("ECOREPAY_ACID and ECOREPAY_AUTHCODE are required when the method is active")
		}
		if (c.Gateway.MCAccountID == "") != (c.Gateway.MCAccountAuth == "") {
			return fmt.Errorf("ECOREPAY_ACID_MC and ECOREPAY_AUTHCODE_MC must be set together")
		}
	}
	return nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
