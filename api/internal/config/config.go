package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string

	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	DefaultEngine string

	Temperature  float64
	MaxTokens    int
	MaxImageSide int

	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	DatabaseURL string
	TracesToken string

	TelegramBotToken string
	WebhookURL       string

	LogLevel  string
	LogFormat string
}

var ErrNoEngine = errors.New("no model engine configured: set GEMINI_API_KEY or OPENAI_API_KEY")

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1/")
	v.SetDefault("DEFAULT_ENGINE", "gemini")
	v.SetDefault("MODEL_TEMPERATURE", 0.1)
	v.SetDefault("MODEL_MAX_TOKENS", 200)
	v.SetDefault("MAX_IMAGE_SIDE", 800)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load reads the process environment.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	return LoadFrom(v)
}

// LoadFrom reads an already prepared viper instance and validates the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	defaults(v)

	timeout, err := seconds(v.GetString("REQUEST_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Port: strings.TrimSpace(v.GetString("PORT")),

		GeminiAPIKey:  strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
		GeminiModel:   strings.TrimSpace(v.GetString("GEMINI_MODEL")),
		OpenAIAPIKey:  strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
		OpenAIModel:   strings.TrimSpace(v.GetString("OPENAI_MODEL")),
		OpenAIBaseURL: strings.TrimSpace(v.GetString("OPENAI_BASE_URL")),
		DefaultEngine: strings.ToLower(strings.TrimSpace(v.GetString("DEFAULT_ENGINE"))),

		Temperature:  v.GetFloat64("MODEL_TEMPERATURE"),
		MaxTokens:    v.GetInt("MODEL_MAX_TOKENS"),
		MaxImageSide: v.GetInt("MAX_IMAGE_SIDE"),

		RequestTimeout: timeout,
		RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),

		DatabaseURL: resolveDSN(v),
		TracesToken: strings.TrimSpace(v.GetString("TRACES_TOKEN")),

		TelegramBotToken: strings.TrimSpace(v.GetString("TELEGRAM_BOT_TOKEN")),
		WebhookURL:       strings.TrimSpace(v.GetString("WEBHOOK_URL")),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		return ErrNoEngine
	}
	switch c.DefaultEngine {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("DEFAULT_ENGINE=gemini but GEMINI_API_KEY is empty")
		}
	case "gpt", "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("DEFAULT_ENGINE=%s but OPENAI_API_KEY is empty", c.DefaultEngine)
		}
	default:
		return fmt.Errorf("DEFAULT_ENGINE %q: use gemini or gpt", c.DefaultEngine)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("MODEL_TEMPERATURE %v out of range [0, 2]", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("MODEL_MAX_TOKENS must be positive")
	}
	if c.MaxImageSide <= 0 {
		return fmt.Errorf("MAX_IMAGE_SIDE must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	return nil
}

// seconds accepts a Go duration ("90s", "2m") or a bare number of seconds.
func seconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveDSN prefers DATABASE_URL, then builds a DSN from POSTGRES_*/PG* when a host or
// database is named. Empty means traces are off.
func resolveDSN(v *viper.Viper) string {
	if s := strings.TrimSpace(v.GetString("DATABASE_URL")); s != "" {
		return s
	}
	host := strings.TrimSpace(v.GetString("PGHOST"))
	db := strings.TrimSpace(v.GetString("POSTGRES_DB"))
	if host == "" && db == "" {
		return ""
	}
	if host == "" {
		host = "db"
	}
	if db == "" {
		db = "calc"
	}
	user := strings.TrimSpace(v.GetString("POSTGRES_USER"))
	if user == "" {
		user = "calc"
	}
	port := strings.TrimSpace(v.GetString("PGPORT"))
	if port == "" {
		port = "5432"
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, v.GetString("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary describes a DSN without its password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
