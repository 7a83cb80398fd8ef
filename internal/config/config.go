// Package config loads famsplit configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "FAMSPLIT_"

// Allocation modes.
const (
	AllocationSplit = "split"
	AllocationFlat  = "flat"
)

// Mail transports.
const (
	TransportSMTP     = "smtp"
	TransportSendGrid = "sendgrid"
	TransportNone     = "none"
)

// Config holds all configuration for the application.
type Config struct {
	Storage

	Addr     string `env:"ADDR"      envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	Invite Invite `envPrefix:"INVITE_"`
	Mail   Mail   `envPrefix:"MAIL_"`

	// AllocationMode is "split" (equal split plus surcharges) or "flat"
	// (static per-user amounts only).
	AllocationMode string `env:"ALLOCATION_MODE" envDefault:"split"`

	// FlatOverrides maps usernames to fixed amounts, e.g. "alice:20.50,bob:35.00".
	FlatOverrides map[string]string `env:"FLAT_OVERRIDES" envKeyValSeparator:":"`

	Events Events `envPrefix:"EVENTS_"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// CORSOrigins lists allowed browser origins. "*" allows any origin
	// but disables credentialed (cookie) requests.
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:8080"`
}

// Storage locates the database. It is all the migrate command needs.
type Storage struct {
	DBPath string `env:"DB_PATH" envDefault:"./data/famsplit.db"`
}

// Invite configures invitation tokens.
type Invite struct {
	Secret  string        `env:"SECRET"`
	MaxAge  time.Duration `env:"MAX_AGE"  envDefault:"72h"`
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:8080/invite"`
}

// Mail configures the outbound email transport.
type Mail struct {
	Transport string `env:"TRANSPORT" envDefault:"none"`
	From      string `env:"FROM"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	SendGridURL    string `env:"SENDGRID_URL" envDefault:"https://api.sendgrid.com/v3/mail/send"`
}

// Events configures the live event broadcaster.
type Events struct {
	MaxSubscribers int           `env:"MAX_SUBSCRIBERS" envDefault:"256"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT"    envDefault:"10m"`
	SweepSchedule  string        `env:"SWEEP_SCHEDULE"  envDefault:"@every 1m"`
	Heartbeat      time.Duration `env:"HEARTBEAT"       envDefault:"15s"`
}

// Load reads an optional .env file, then parses FAMSPLIT_* environment
// variables and validates the result.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return Parse()
}

// LoadStorage reads an optional .env file and parses only the storage
// settings, without requiring secrets.
func LoadStorage() (*Storage, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	cfg := &Storage{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Parse parses FAMSPLIT_* environment variables without touching .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("FAMSPLIT_SESSION_SECRET is required"))
	}
	if c.Invite.Secret == "" {
		errs = append(errs, errors.New("FAMSPLIT_INVITE_SECRET is required"))
	}
	if c.Invite.MaxAge <= 0 {
		errs = append(errs, errors.New("FAMSPLIT_INVITE_MAX_AGE must be positive"))
	}
	switch c.AllocationMode {
	case AllocationSplit, AllocationFlat:
	default:
		errs = append(errs, fmt.Errorf("unknown allocation mode %q", c.AllocationMode))
	}
	switch c.Mail.Transport {
	case TransportNone:
	case TransportSMTP:
		if c.Mail.SMTPHost == "" || c.Mail.From == "" {
			errs = append(errs, errors.New("smtp transport needs FAMSPLIT_MAIL_SMTP_HOST and FAMSPLIT_MAIL_FROM"))
		}
	case TransportSendGrid:
		if c.Mail.SendGridAPIKey == "" || c.Mail.From == "" {
			errs = append(errs, errors.New("sendgrid transport needs FAMSPLIT_MAIL_SENDGRID_API_KEY and FAMSPLIT_MAIL_FROM"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mail transport %q", c.Mail.Transport))
	}
	return errors.Join(errs...)
}
