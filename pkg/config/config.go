package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
	}
	Postgres struct {
		Port    int    `env:"POSTGRES_PORT"`
		Host    string `env:"POSTGRES_HOST"`
		User    string `env:"POSTGRES_USER"`
		Pass    string `env:"POSTGRES_PASS"`
		Name    string `env:"POSTGRES_NAME"`
		SslMode string `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	}
	Facebook struct {
		PageID      string `env:"FB_PAGE_ID"`
		AccessToken string `env:"FB_ACCESS_TOKEN"`
		AppID       string `env:"FB_APP_ID"`
		AppSecret   string `env:"FB_APP_SECRET"`
		GraphURL    string `env:"FB_GRAPH_URL" env-default:"https://graph.facebook.com/v18.0"`
	}
	Cache struct {
		RedisURL   string `env:"REDIS_URL"`
		TTLSeconds int    `env:"FB_CACHE_TTL_SECONDS" env-default:"900"`
	}
	Sync struct {
		// Cron is a standard 5-field cron expression. Empty disables the
		// background sync job.
		Cron string `env:"SYNC_CRON"`
	}
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}

// GetDSN returns the Postgres connection string in URL form.
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Pass,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.Name,
		c.Postgres.SslMode,
	)
}
