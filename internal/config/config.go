package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Classifier failure modes
const (
	FailModeOpen   = "open"
	FailModeClosed = "closed"
)

type DB struct {
	URL             string        `env:"DATABASE_URL,required"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"8"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"15m"`
}

type Kafka struct {
	BootstrapServers string `env:"KAFKA_BOOTSTRAP_SERVERS"`
	AuditTopic       string `env:"KAFKA_AUDIT_TOPIC" envDefault:"guardian.moderation-audit"`
}

// Perspective holds the classification provider settings. The API key is
// resolved through the secret store by symbolic name, never embedded here.
type Perspective struct {
	APIKeySecret string `env:"PERSPECTIVE_API_KEY_SECRET" envDefault:"perspective-api-key"`
	BaseURL      string `env:"PERSPECTIVE_BASE_URL" envDefault:"https://commentanalyzer.googleapis.com"`
	Language     string `env:"PERSPECTIVE_LANGUAGE" envDefault:"ja"`
}

type Discord struct {
	BotTokenSecret        string `env:"DISCORD_BOT_TOKEN_SECRET" envDefault:"discord-bot-key"`
	DefaultChannelID      string `env:"DISCORD_DEFAULT_CHANNEL_ID,required"`
	NotificationChannelID string `env:"DISCORD_NOTIFICATION_CHANNEL_ID"`
	EmergencyChannelID    string `env:"DISCORD_EMERGENCY_CHANNEL_ID"`
	ReplyChannelID        string `env:"DISCORD_REPLY_CHANNEL_ID"`
}

// Guardian holds the detection policy switches. The toxicity cutoff itself
// is a policy constant, not configuration.
type Guardian struct {
	ClassifierFailMode string `env:"GUARDIAN_CLASSIFIER_FAIL_MODE" envDefault:"open"`
	RevertAllInBatch   bool   `env:"GUARDIAN_REVERT_ALL_IN_BATCH" envDefault:"false"`
}

type Server struct {
	Port string `env:"PORT" envDefault:"8080"`
}

type Config struct {
	DB          DB
	Kafka       Kafka
	Perspective Perspective
	Discord     Discord
	Guardian    Guardian
	Server      Server
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	switch cfg.Guardian.ClassifierFailMode {
	case FailModeOpen, FailModeClosed:
	default:
		return nil, fmt.Errorf("invalid GUARDIAN_CLASSIFIER_FAIL_MODE %q: must be %q or %q",
			cfg.Guardian.ClassifierFailMode, FailModeOpen, FailModeClosed)
	}

	return cfg, nil
}
