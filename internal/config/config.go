package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	BcryptCost  int    `env:"BCRYPT_COST" envDefault:"10"`

	Database  Database  `envPrefix:"DB_"`
	Auth      Auth      `envPrefix:"JWT_"`
	Stripe    Stripe    `envPrefix:"STRIPE_"`
	Redis     Redis     `envPrefix:"REDIS_"`
	Kafka     Kafka     `envPrefix:"KAFKA_"`
	SES       SES       `envPrefix:"SES_"`
	CORS      CORS      `envPrefix:"CORS_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
	Admin     Admin     `envPrefix:"ADMIN_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

func (e Environment) IsProduction() bool {
	return e.Name == "production"
}

const (
	defaultJWTSecret        = "change-me"
	defaultJWTRefreshSecret = "change-me-too"
)

var ErrInsecureConfig = errors.New("insecure configuration")

// Validate refuses production settings that leave tokens or webhooks forgeable.
func (c *Config) Validate() error {
	if !c.Environment.IsProduction() {
		return nil
	}

	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("%w: STRIPE_WEBHOOK_SECRET is required in production", ErrInsecureConfig)
	}
	if c.Auth.Secret == "" || c.Auth.Secret == defaultJWTSecret {
		return fmt.Errorf("%w: JWT_SECRET must be set in production", ErrInsecureConfig)
	}
	if c.Auth.RefreshSecret == "" || c.Auth.RefreshSecret == defaultJWTRefreshSecret {
		return fmt.Errorf("%w: JWT_REFRESH_SECRET must be set in production", ErrInsecureConfig)
	}
	if c.Auth.Secret == c.Auth.RefreshSecret {
		return fmt.Errorf("%w: JWT_SECRET and JWT_REFRESH_SECRET must differ", ErrInsecureConfig)
	}

	return nil
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

// Database selects the gorm dialector. Driver is one of sqlite, mysql, postgres.
type Database struct {
	Driver          string        `env:"DRIVER" envDefault:"sqlite"`
	DSN             string        `env:"DSN" envDefault:"storefront.db"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

type Auth struct {
	Secret        string        `env:"SECRET" envDefault:"change-me"`
	RefreshSecret string        `env:"REFRESH_SECRET" envDefault:"change-me-too"`
	AccessTTL     time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
}

type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Currency      string `env:"CURRENCY" envDefault:"usd"`
}

// Redis is optional. An empty Addr disables the product cache.
type Redis struct {
	Addr       string        `env:"ADDR"`
	Password   string        `env:"PASSWORD"`
	DB         int           `env:"DB" envDefault:"0"`
	ProductTTL time.Duration `env:"PRODUCT_TTL" envDefault:"5m"`
}

// Kafka is optional. No brokers disables order event publishing.
type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"order-events"`
}

// SES is optional. An empty Sender disables order emails.
type SES struct {
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Sender          string `env:"SENDER"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

type CORS struct {
	AllowOrigins []string `env:"ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
}

type RateLimit struct {
	RequestsPerSecond float64 `env:"RPS" envDefault:"20"`
}

// Admin seeds an admin account on startup when both fields are set.
type Admin struct {
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
}
