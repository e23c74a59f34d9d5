package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration
type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`
	AdminIDsRaw   string `env:"ADMIN_IDS"`
	AdminIDs      []int64

	// Bot mode configuration
	WebhookMode bool   `env:"WEBHOOK_MODE"` // If true, use webhook mode; if false, use polling mode
	WebhookURL  string `env:"WEBHOOK_URL"`  // URL for webhook (required if WebhookMode is true)

	Port      string `env:"PORT" envDefault:"10000"`
	DBPath    string `env:"DB_PATH" envDefault:"moderation_bot.db"`
	UseMockDB bool   `env:"USE_MOCK_DB"`

	// Moderation policy
	SubmissionCooldown time.Duration `env:"SUBMISSION_COOLDOWN" envDefault:"5m"`
	RejectPolicy       string        `env:"REJECT_POLICY" envDefault:"ban"`
	AdminAPIKey        string        `env:"ADMIN_API_KEY"` // empty disables /admin-stats

	Workers       int           `env:"WORKERS" envDefault:"4"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	// ClickHouse audit journal (optional)
	AuditEnabled       bool   `env:"AUDIT_ENABLED"`
	ClickHouseHost     string `env:"CLICKHOUSE_HOST"`
	ClickHousePort     int    `env:"CLICKHOUSE_PORT" envDefault:"9000"`
	ClickHouseDatabase string `env:"CLICKHOUSE_DATABASE" envDefault:"default"`
	ClickHouseUser     string `env:"CLICKHOUSE_USER" envDefault:"default"`
	ClickHousePassword string `env:"CLICKHOUSE_PASSWORD"`
	ClickHouseUseTLS   bool   `env:"CLICKHOUSE_USE_TLS"`
}

// Development reports whether the app runs in development mode
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// LoadStorageFromEnv parses the environment without the bot-only requirements.
// Tools that only touch the stores, like migrate, use it.
func LoadStorageFromEnv() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return config, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config, err := LoadStorageFromEnv()
	if err != nil {
		return nil, err
	}

	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Admin IDs (required)
	if strings.TrimSpace(config.AdminIDsRaw) == "" {
		return nil, fmt.Errorf("ADMIN_IDS is required (comma-separated list of Telegram user IDs)")
	}
	for _, idStr := range strings.Split(config.AdminIDsRaw, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID in ADMIN_IDS: %s", idStr)
		}
		config.AdminIDs = append(config.AdminIDs, id)
	}
	if len(config.AdminIDs) == 0 {
		return nil, fmt.Errorf("ADMIN_IDS is required (comma-separated list of Telegram user IDs)")
	}

	if config.WebhookMode && config.WebhookURL == "" {
		return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
	}
	config.WebhookURL = strings.TrimRight(config.WebhookURL, "/")

	switch config.RejectPolicy {
	case "ban", "retry":
	default:
		return nil, fmt.Errorf("invalid REJECT_POLICY: %s (expected ban or retry)", config.RejectPolicy)
	}

	if config.SubmissionCooldown < 0 {
		return nil, fmt.Errorf("SUBMISSION_COOLDOWN must not be negative")
	}
	if config.Workers < 1 {
		return nil, fmt.Errorf("WORKERS must be at least 1")
	}
	if config.NotifyTimeout <= 0 {
		return nil, fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}

	// ClickHouse is only needed for the audit journal
	if config.AuditEnabled && !config.UseMockDB && config.ClickHouseHost == "" {
		return nil, fmt.Errorf("CLICKHOUSE_HOST is required when AUDIT_ENABLED is true")
	}

	return config, nil
}
