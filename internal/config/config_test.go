package config

import (
	"os"
	"testing"
	"time"

	"github.com/ashureev/learnerbot/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "GRPC_PORT", "FRONTEND_URL", "DB_PATH", "SESSION_TTL", "LEARNERBOT_MODE",
		"OPENROUTER_API_KEY", "SITE_URL", "SITE_NAME", "COMPLETION_BASE_URL", "COMPLETION_MODEL",
		"COMPLETION_MAX_TOKENS", "COMPLETION_TIMEOUT", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW",
	} {
		unsetEnv(t, k)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.GRPCPort)
	assert.Equal(t, "./data/learnerbot.db", cfg.DBPath)
	assert.Equal(t, 60*time.Minute, cfg.SessionTTL)
	assert.Equal(t, chat.ModeCompletion, cfg.Mode)
	assert.Empty(t, cfg.Completion.APIKey)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.Completion.BaseURL)
	assert.Equal(t, "openai/gpt-4o", cfg.Completion.Model)
	assert.Equal(t, 1500, cfg.Completion.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.Completion.Timeout)
	assert.Equal(t, "https://learnerbot.ai", cfg.Completion.SiteURL)
	assert.Equal(t, "LearnerBot AI Assistant", cfg.Completion.SiteName)
	assert.Equal(t, 20, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GRPC_PORT", "9001")
	t.Setenv("FRONTEND_URL", "https://learn.example.com")
	t.Setenv("LEARNERBOT_MODE", "Rules")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "9001", cfg.GRPCPort)
	assert.Equal(t, chat.ModeRules, cfg.Mode)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "sk-test", cfg.Completion.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Completion.Timeout)
	assert.Equal(t, 20, cfg.RateLimit.Requests, "unparsable values fall back to the default")
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://learn.example.com"}, cfg.AllowedOrigins())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown mode", "LEARNERBOT_MODE", "gpt"},
		{"empty port", "PORT", ""},
		{"empty db path", "DB_PATH", ""},
		{"zero ttl", "SESSION_TTL", "0s"},
		{"negative tokens", "COMPLETION_MAX_TOKENS", "-1"},
		{"zero rate limit", "RATE_LIMIT_REQUESTS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}
