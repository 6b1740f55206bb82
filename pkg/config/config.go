package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the signal gateway.
type Config struct {
	Port string

	// Webhook authentication: the secret must appear both in the URL and
	// in the alert body.
	WebhookSecret string

	// Alor
	AlorBaseURL      string
	AlorOAuthURL     string
	AlorRefreshToken string
	AlorClientID     string
	AlorClientSecret string
	AlorPortfolio    string
	AlorExchange     string

	// Instruments
	InstrumentsPath string

	// Execution retries
	SubmitAttempts  int
	SubmitBackoff   time.Duration
	ConfirmAttempts int
	SettleWait      time.Duration

	// Trading calendar
	BlockWeekends bool
	ExchangeTZ    string

	// Telegram
	TelegramToken  string
	TelegramChatID string

	// Scheduled balance reports, "HH:MM" in exchange time.
	ReportTimes []string

	// Database
	DBPath string

	// Auth for the admin API
	JWTSecret string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
		AlorBaseURL:      getEnv("ALOR_BASE_URL", "https://api.alor.ru"),
		AlorOAuthURL:     getEnv("ALOR_OAUTH_URL", "https://oauth.alor.ru"),
		AlorRefreshToken: os.Getenv("ALOR_REFRESH_TOKEN"),
		AlorClientID:     os.Getenv("ALOR_CLIENT_ID"),
		AlorClientSecret: os.Getenv("ALOR_CLIENT_SECRET"),
		AlorPortfolio:    os.Getenv("ALOR_PORTFOLIO"),
		AlorExchange:     getEnv("ALOR_EXCHANGE", "MOEX"),
		InstrumentsPath:  getEnv("INSTRUMENTS_PATH", "./config/instruments.yaml"),
		SubmitAttempts:   getEnvInt("SUBMIT_ATTEMPTS", 5),
		SubmitBackoff:    getEnvDuration("SUBMIT_BACKOFF", 2*time.Minute),
		ConfirmAttempts:  getEnvInt("CONFIRM_ATTEMPTS", 2),
		SettleWait:       getEnvDuration("SETTLE_WAIT", 5*time.Second),
		BlockWeekends:    getEnv("BLOCK_WEEKENDS", "true") == "true",
		ExchangeTZ:       getEnv("EXCHANGE_TZ", "Europe/Moscow"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		ReportTimes:      splitAndTrim(getEnv("REPORT_TIMES", "11:00,18:00")),
		DBPath:           getEnv("DB_PATH", "./data/signalgate.db"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret"),
	}

	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required")
	}
	if cfg.AlorRefreshToken == "" {
		return nil, fmt.Errorf("ALOR_REFRESH_TOKEN is required")
	}
	if cfg.AlorPortfolio == "" {
		return nil, fmt.Errorf("ALOR_PORTFOLIO is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
