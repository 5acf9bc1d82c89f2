package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Domain     string `env:"DOMAIN,required"`

	DatabaseURL string `env:"DATABASE_URL,required"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`
	RedisURL    string `env:"REDIS_URL,required"`

	JWT       JWT       `envPrefix:"JWT_"`
	Tokens    Tokens    `envPrefix:""`
	Mail      Mail      `envPrefix:"MAIL_"`
	Kafka     Kafka     `envPrefix:"KAFKA_"`
	Search    Search    `envPrefix:"ES_"`
	RateLimit RateLimit `envPrefix:"AUTH_RATE_"`
}

type JWT struct {
	Secret     string        `env:"SECRET,required"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"60m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"48h"`
}

type Tokens struct {
	RevocationCeiling time.Duration `env:"REVOCATION_TTL_CEILING" envDefault:"48h"`
	VerifyTTL         time.Duration `env:"VERIFY_TOKEN_TTL" envDefault:"24h"`
	ResetTTL          time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`
}

type Mail struct {
	Server   string `env:"SERVER"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"noreply@bookly.local"`
	FromName string `env:"FROM_NAME" envDefault:"Bookly"`
	UseSSL   bool   `env:"USE_SSL" envDefault:"false"`
	Topic    string `env:"TOPIC" envDefault:"mail_jobs"`
	Group    string `env:"GROUP" envDefault:"bookly-mailer"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
}

type Search struct {
	URL      string `env:"URL"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	Index    string `env:"INDEX" envDefault:"books"`
}

type RateLimit struct {
	RPS   float64 `env:"RPS" envDefault:"1"`
	Burst int     `env:"BURST" envDefault:"10"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// FromMap builds a Config from the given variables only.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.JWT.Secret) < 16 {
		return nil, fmt.Errorf("parse config: JWT_SECRET must be at least 16 bytes")
	}
	return &cfg, nil
}
