package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, kv map[string]any) (*Config, error) {
	t.Helper()
	v := viper.New()
	for k, val := range kv {
		v.Set(k, val)
	}
	return LoadFrom(v)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]any{"GEMINI_API_KEY": " g-key "})
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "g-key", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, "gemini", cfg.DefaultEngine)
	assert.InDelta(t, 0.1, cfg.Temperature, 1e-9)
	assert.Equal(t, 200, cfg.MaxTokens)
	assert.Equal(t, 800, cfg.MaxImageSide)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Zero(t, cfg.RateLimitRPS)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.TracesToken)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(t, map[string]any{
		"OPENAI_API_KEY":    "o-key",
		"DEFAULT_ENGINE":    "GPT",
		"REQUEST_TIMEOUT":   "90",
		"CORS_ORIGINS":      "http://localhost:5173, https://calc.example.com ,",
		"RATE_LIMIT_RPS":    "2.5",
		"MODEL_TEMPERATURE": "0",
		"DATABASE_URL":      "postgres://u:p@h:5432/d",
		"TRACES_TOKEN":      " admin-token ",
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt", cfg.DefaultEngine)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "https://calc.example.com"}, cfg.CORSOrigins)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 1e-9)
	assert.Zero(t, cfg.Temperature)
	assert.Equal(t, "postgres://u:p@h:5432/d", cfg.DatabaseURL)
	assert.Equal(t, "admin-token", cfg.TracesToken)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.GeminiAPIKey)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := load(t, map[string]any{})
	assert.ErrorIs(t, err, ErrNoEngine)

	for name, kv := range map[string]map[string]any{
		"default without key": {"OPENAI_API_KEY": "k"},
		"unknown default":     {"GEMINI_API_KEY": "k", "DEFAULT_ENGINE": "llava"},
		"bad timeout":         {"GEMINI_API_KEY": "k", "REQUEST_TIMEOUT": "soon"},
		"zero timeout":        {"GEMINI_API_KEY": "k", "REQUEST_TIMEOUT": "0"},
		"hot temperature":     {"GEMINI_API_KEY": "k", "MODEL_TEMPERATURE": 3},
		"no tokens":           {"GEMINI_API_KEY": "k", "MODEL_MAX_TOKENS": 0},
		"no image side":       {"GEMINI_API_KEY": "k", "MAX_IMAGE_SIDE": -1},
		"negative rps":        {"GEMINI_API_KEY": "k", "RATE_LIMIT_RPS": -1},
	} {
		_, err := load(t, kv)
		assert.Error(t, err, name)
	}
}

func TestResolveDSN_FromParts(t *testing.T) {
	cfg, err := load(t, map[string]any{
		"GEMINI_API_KEY":    "k",
		"PGHOST":            "pg",
		"POSTGRES_USER":     "calc",
		"POSTGRES_PASSWORD": "s3cr3t",
		"POSTGRES_DB":       "traces",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://calc:s3cr3t@pg:5432/traces?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "host=pg port=5432 db=traces user=calc", SafeDSNSummary(cfg.DatabaseURL))
}

func TestSafeDSNSummary(t *testing.T) {
	assert.Equal(t, "host=h db=d user=u", SafeDSNSummary("postgres://u:p@h/d"))
	assert.Equal(t, "dsn: parse error", SafeDSNSummary("postgres://u:p@[::1/d"))
}
