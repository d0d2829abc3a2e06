package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string   `env:"SERVICE_NAME" envDefault:"adshift"`
	HTTPPort     string   `env:"HTTP_PORT" envDefault:"8080"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	PostgresDSN    string `env:"POSTGRES_DSN"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"adshift.db"`

	Timezone    string        `env:"AUTOMATION_TIMEZONE" envDefault:"UTC"`
	Interval    time.Duration `env:"AUTOMATION_INTERVAL" envDefault:"60s"`
	Parallelism int           `env:"AUTOMATION_PARALLELISM" envDefault:"8"`
	AllowedIDs  []string      `env:"ALLOWED_ADSET_IDS" envSeparator:","`
	TurnsSeed   string        `env:"TURNS_SEED_FILE"`
	AuditLimit  int           `env:"AUDIT_LOG_LIMIT" envDefault:"20"`

	BridgeMaxAttempts int           `env:"BRIDGE_MAX_ATTEMPTS" envDefault:"4"`
	BridgeTimeout     time.Duration `env:"BRIDGE_TIMEOUT" envDefault:"30s"`

	MetaAccessToken string `env:"META_ACCESS_TOKEN"`
	MetaAdAccountID string `env:"META_AD_ACCOUNT_ID"`
	MetaAPIVersion  string `env:"META_API_VERSION" envDefault:"v19.0"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	cfg.AllowedIDs = compact(cfg.AllowedIDs)
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres":
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("POSTGRES_DSN is required when DATABASE_DRIVER=postgres")
		}
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when DATABASE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("AUTOMATION_INTERVAL must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("AUTOMATION_PARALLELISM must be positive")
	}
	return nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
