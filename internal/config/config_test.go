package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_TTL", "not-a-duration")
	t.Setenv("SMTP_PORT", "2525")

	cfg := Load()

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL, "bad duration falls back")
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, "knowledgeBase", cfg.Content.TreeCollection)
	assert.Equal(t, "chats", cfg.Content.SessionCollection)
	assert.False(t, cfg.IsProduction())
}

func TestSMTPConfig_Enabled(t *testing.T) {
	assert.False(t, SMTPConfig{}.Enabled())
	assert.False(t, SMTPConfig{Host: "smtp.example.com"}.Enabled())
	assert.True(t, SMTPConfig{Host: "smtp.example.com", Email: "desk@example.com"}.Enabled())
}
