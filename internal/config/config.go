package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	CORSAllowedOrigins []string

	CurrencyCode          string
	FreeShippingThreshold int64
	ShippingFlatFee       int64

	CouponPerUserLimit int

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string
	GatewayTimeout    time.Duration

	IdempotencyTTL     time.Duration
	CheckoutLockTTL    time.Duration
	LockRetryBackoff   time.Duration
	WebhookReplayTTL   time.Duration
	CheckoutRateWindow time.Duration
	CheckoutRateMax    int
	APIRateLimit       string

	SettleMaxRetry  int
	SettleQueueName string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          valueOrDefault(k.String("JWT_ISSUER"), "adorn"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CurrencyCode:          valueOrDefault(k.String("CURRENCY_CODE"), "INR"),
		FreeShippingThreshold: parseInt64(k.String("PRICING_FREE_SHIPPING_THRESHOLD"), 100_000),
		ShippingFlatFee:       parseInt64(k.String("PRICING_SHIPPING_FLAT_FEE"), 9_900),

		CouponPerUserLimit: int(parseInt64(k.String("COUPON_PER_USER_LIMIT"), 1)),

		RazorpayKeyID:     k.String("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: k.String("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:   k.String("RAZORPAY_BASE_URL"),
		GatewayTimeout:    parseDuration(k.String("GATEWAY_TIMEOUT"), "10s"),

		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutLockTTL:    parseDuration(k.String("CHECKOUT_LOCK_TTL"), "30s"),
		LockRetryBackoff:   parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		WebhookReplayTTL:   parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "48h"),
		CheckoutRateWindow: parseDuration(k.String("CHECKOUT_RATE_WINDOW"), "1m"),
		CheckoutRateMax:    int(parseInt64(k.String("CHECKOUT_RATE_MAX"), 10)),
		APIRateLimit:       valueOrDefault(k.String("API_RATE_LIMIT"), "300-M"),

		SettleMaxRetry:  int(parseInt64(k.String("SETTLE_MAX_RETRY"), 10)),
		SettleQueueName: valueOrDefault(k.String("SETTLE_QUEUE_NAME"), "settlement"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	v, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
