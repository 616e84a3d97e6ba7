package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Discord  DiscordConfig
	Database DatabaseConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Log      LogConfig

	// ConfirmWindow is how long a confirm/cancel offer stays open.
	ConfirmWindow time.Duration `yaml:"confirm_window" env:"CONFIRM_WINDOW" env-default:"15s"`

	// PromptTTL bounds how long an orphaned prompt token may linger before
	// the janitor evicts it. Must exceed ConfirmWindow.
	PromptTTL time.Duration `yaml:"prompt_ttl" env:"PROMPT_TTL" env-default:"30s"`

	// OpsPort serves /healthz and /metrics.
	OpsPort string `yaml:"ops_port" env:"OPS_PORT" env-default:"8090"`
}

type DiscordConfig struct {
	Token string `yaml:"token" env:"DISCORD_TOKEN" env-required:"true"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"sentinel"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	MaxConns int    `yaml:"max_conns" env:"DB_MAX_CONNECTIONS" env-default:"10"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// RedisConfig is optional: an empty Addr disables the guild cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"GUILD_CACHE_TTL" env-default:"5m"`
}

// RabbitMQConfig is optional: an empty URI disables case event publishing.
type RabbitMQConfig struct {
	URI       string `yaml:"uri" env:"RABBITMQ_URI"`
	CaseQueue string `yaml:"case_queue" env:"CASE_EVENT_QUEUE" env-default:"moderation_case_events"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// LoadConfig reads config.yml if present, falling back to environment
// variables alone.
func LoadConfig() (*Config, error) {
	const configPath = "config.yml"

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Debug().Err(err).Str("path", configPath).Msg("config file not read, using environment only")
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	if cfg.PromptTTL <= cfg.ConfirmWindow {
		cfg.PromptTTL = 2 * cfg.ConfirmWindow
	}
	return &cfg, nil
}
