package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "API_ENDPOINT", "RECAPTCHA_SITE_KEY",
		"RESUME_STRICT", "RESUME_TIMEOUT", "DATABASE_PATH", "SESSION_TTL",
		"ADMIN_USERNAME", "ADMIN_PASSWORD", "SENDGRID_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.APIEndpoint)
	assert.True(t, cfg.ResumeStrict)
	assert.Zero(t, cfg.ResumeTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Empty(t, cfg.RecaptchaSiteKey)
	assert.NotEmpty(t, cfg.Warnings)
}

func TestLoadFromEnvAndFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_ENDPOINT", "https://api.example.com")
	t.Setenv("RECAPTCHA_SITE_KEY", "site-key")
	t.Setenv("RESUME_STRICT", "false")
	t.Setenv("RESUME_TIMEOUT", "10s")
	t.Setenv("PORT", "9000")

	cfg, err := Load([]string{"--port", "9100", "--log-level=debug"})
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://api.example.com", cfg.APIEndpoint)
	assert.Equal(t, "site-key", cfg.RecaptchaSiteKey)
	assert.False(t, cfg.ResumeStrict)
	assert.Equal(t, 10*time.Second, cfg.ResumeTimeout)
}

func TestLoadProductionRequiresSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load(nil)
	require.ErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), "API_ENDPOINT")
	assert.Contains(t, err.Error(), "RECAPTCHA_SITE_KEY")
}

func TestLoadBadFlag(t *testing.T) {
	clearEnv(t)
	_, err := Load([]string{"--nope"})
	assert.Error(t, err)
}
