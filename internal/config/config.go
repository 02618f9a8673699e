// Package config はアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceMonthly  string
	StripePriceYearly   string
	StripePriceLifetime string

	// SendGrid（未設定の場合、サポート通知メールはスキップされる）
	SendGridAPIKey  string
	SupportEmail    string
	SupportFromAddr string

	// Link title fetch
	LinkFetchTimeout time.Duration
	LinkFetchMaxSize int64

	// Rate Limit
	RateLimitGeneral int
	RateLimitVote    int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	if cfg.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}

	cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	if cfg.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.StripePriceMonthly = getEnv("STRIPE_PRICE_MONTHLY", "")
	cfg.StripePriceYearly = getEnv("STRIPE_PRICE_YEARLY", "")
	cfg.StripePriceLifetime = getEnv("STRIPE_PRICE_LIFETIME", "")

	cfg.SendGridAPIKey = getEnv("SENDGRID_API_KEY", "")
	cfg.SupportEmail = getEnv("SUPPORT_EMAIL", "")
	cfg.SupportFromAddr = getEnv("SUPPORT_FROM_ADDR", "noreply@studyshare.app")

	cfg.LinkFetchTimeout = getEnvDuration("LINK_FETCH_TIMEOUT", 5*time.Second)
	cfg.LinkFetchMaxSize = getEnvInt64("LINK_FETCH_MAX_SIZE", 1024*1024)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitVote = getEnvInt("RATE_LIMIT_VOTE", 30)

	cfg.ServerPort = getEnv("SERVER_PORT", "8080")
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", true)
	cfg.CORSAllowedOrigin = getEnv("CORS_ALLOWED_ORIGIN", cfg.BaseURL)

	return cfg, nil
}

// getEnv は環境変数を取得し、未設定の場合はデフォルト値を返す。
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt は整数の環境変数を取得する。未設定または不正な場合はデフォルト値を返す。
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// getEnvInt64 はint64の環境変数を取得する。未設定または不正な場合はデフォルト値を返す。
func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// getEnvBool は真偽値の環境変数を取得する。未設定または不正な場合はデフォルト値を返す。
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvDuration は秒数指定の環境変数をtime.Durationとして取得する。
// 未設定または不正な場合はデフォルト値を返す。
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
