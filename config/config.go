package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env          string `env:"ENVIRONMENT"`
	ServerPort   int    `env:"SERVER_PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"feedsync.sqlite"`

	SyncIntervalMins  int `env:"SYNC_INTERVAL_MINS" envDefault:"60"`
	FetchTimeoutSecs  int `env:"FETCH_TIMEOUT_SECS" envDefault:"20"`
	ItemRetentionDays int `env:"ITEM_RETENTION_DAYS" envDefault:"90"`

	Notify struct {
		Platform  string `env:"NOTIFY_PLATFORM" envDefault:"log"`
		Recipient string `env:"NOTIFY_EMAIL_RECIPIENT"`
	}
	Mailgun struct {
		Domain      string `env:"MAILGUN_DOMAIN"`
		APIKey      string `env:"MAILGUN_API_KEY"`
		SenderFrom  string `env:"MAILGUN_SENDER_FROM"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"10"`
	}

	log *zap.Logger
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		log.Sugar().Panic(err)
	}

	if cfg.Notify.Platform == "email" && cfg.Notify.Recipient == "" {
		if cfg.Env == "development" {
			cfg.log.Sugar().Info("NOTIFY_EMAIL_RECIPIENT is unset, falling back to log notifications")
			cfg.Notify.Platform = "log"
		} else {
			cfg.log.Sugar().Panic("NOTIFY_EMAIL_RECIPIENT must be populated when NOTIFY_PLATFORM=email")
		}
	}

	return cfg
}

func (cfg *Config) SyncInterval() time.Duration {
	return time.Duration(cfg.SyncIntervalMins) * time.Minute
}

func (cfg *Config) FetchTimeout() time.Duration {
	return time.Duration(cfg.FetchTimeoutSecs) * time.Second
}

func (cfg *Config) ItemRetention() time.Duration {
	return time.Duration(cfg.ItemRetentionDays) * 24 * time.Hour
}
