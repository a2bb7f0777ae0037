// Package config reads site settings from the environment (a .env file is
// loaded first by godotenv) with command-line flags taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Resume backend and challenge widget
	APIEndpoint      string
	RecaptchaSiteKey string
	ResumeStrict     bool
	ResumeTimeout    time.Duration

	DatabasePath string
	SessionTTL   time.Duration

	AdminUsername string
	AdminPassword string

	// Contact mail: SendGrid wins when its key is set, then SMTP.
	SMTPHost          string
	SMTPPort          string
	SMTPUser          string
	SMTPPass          string
	ToEmail           string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Warnings collects dev-only fallbacks that were applied.
	Warnings []string
}

// IsProduction reports whether dev fallbacks are disabled.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load builds a Config from the environment and args (without the program
// name).
func Load(args []string) (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               strings.ToLower(getEnv("APP_ENV", "development")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		APIEndpoint:       os.Getenv("API_ENDPOINT"),
		RecaptchaSiteKey:  os.Getenv("RECAPTCHA_SITE_KEY"),
		ResumeStrict:      getEnvAsBool("RESUME_STRICT", true),
		ResumeTimeout:     getEnvAsDuration("RESUME_TIMEOUT", 0),
		DatabasePath:      getEnv("DATABASE_PATH", "portfolio.db"),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		AdminUsername:     os.Getenv("ADMIN_USERNAME"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		SMTPHost:          getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:          getEnv("SMTP_PORT", "587"),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPass:          os.Getenv("SMTP_PASS"),
		ToEmail:           os.Getenv("TO_EMAIL"),
		SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		SendGridFromEmail: os.Getenv("SENDGRID_FROM_EMAIL"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Portfolio"),
	}

	fs := pflag.NewFlagSet("portfolio", pflag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.Env, "env", cfg.Env, "development or production")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.APIEndpoint, "api-endpoint", cfg.APIEndpoint, "base URL of the resume backend")
	fs.BoolVar(&cfg.ResumeStrict, "resume-strict", cfg.ResumeStrict, "require name and email before a resume request can be sent")
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite database file")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parse flags: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	var missing []string
	if c.APIEndpoint == "" {
		if c.IsProduction() {
			missing = append(missing, "API_ENDPOINT")
		} else {
			c.APIEndpoint = "http://localhost:3000"
			c.warn("using default API_ENDPOINT http://localhost:3000")
		}
	}
	if c.RecaptchaSiteKey == "" {
		if c.IsProduction() {
			missing = append(missing, "RECAPTCHA_SITE_KEY")
		} else {
			c.warn("RECAPTCHA_SITE_KEY not set; the challenge widget will not render")
		}
	}
	if c.AdminUsername == "" || c.AdminPassword == "" {
		if c.IsProduction() {
			missing = append(missing, "ADMIN_USERNAME/ADMIN_PASSWORD")
		} else {
			if c.AdminUsername == "" {
				c.AdminUsername = "admin"
				c.warn("using default admin username; set ADMIN_USERNAME")
			}
			if c.AdminPassword == "" {
				c.AdminPassword = "admin123"
				c.warn("using default admin password; set ADMIN_PASSWORD")
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: %w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) warn(msg string) {
	c.Warnings = append(c.Warnings, msg)
}

// ErrMissing is returned when production settings are absent.
var ErrMissing = errors.New("required settings missing")

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
