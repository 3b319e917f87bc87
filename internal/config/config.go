package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Payment modes.
const (
	PaymentModeMock   = "mock"
	PaymentModeStripe = "stripe"
)

// Config holds all configuration for the application.
// It is built once at startup and passed to every component that needs it.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Identity provider tokens
	JwtSecret       string
	CaptchaTokenTTL time.Duration

	// Server
	ApiPort           string
	ServiceApiPort    string
	CorsAllowedOrigin string

	// Cloudflare
	CloudflareTurnstileSecretKey string
	CloudflareSiteVerifyURL      string

	// Payment
	PaymentMode         string
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeSuccessURL    string
	StripeCancelURL     string
	AcceptFeeKRW        int64
	WebhookDedupeTTL    time.Duration

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	MockServices    bool
	LogEmailsPath   string

	// AWS S3 (portfolio uploads)
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	PortfolioBaseURL   string

	// App Defaults
	AppName     string
	WebBaseURL  string
	GetCacheTTL time.Duration
	SeedFile    string

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		v, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(v) * time.Second, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "banju")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.CorsAllowedOrigin = getEnv("CORS_ALLOWED_ORIGIN", "*")
	cfg.CloudflareTurnstileSecretKey = getEnv("CLOUDFLARE_TURNSTILE_SECRET_KEY", "")
	cfg.CloudflareSiteVerifyURL = getEnv("CLOUDFLARE_SITEVERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")

	cfg.PaymentMode = strings.ToLower(getEnv("PAYMENT_MODE", PaymentModeMock))
	if cfg.PaymentMode != PaymentModeMock && cfg.PaymentMode != PaymentModeStripe {
		return nil, fmt.Errorf("invalid PAYMENT_MODE %q: expected %q or %q", cfg.PaymentMode, PaymentModeMock, PaymentModeStripe)
	}
	cfg.StripeSecretKey = getEnv("STRIPE_SECRET_KEY", "")
	cfg.StripeWebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", "")
	cfg.StripeSuccessURL = getEnv("STRIPE_SUCCESS_URL", "")
	cfg.StripeCancelURL = getEnv("STRIPE_CANCEL_URL", "")
	cfg.AcceptFeeKRW, err = strconv.ParseInt(getEnv("ACCEPT_FEE_KRW", "10000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ACCEPT_FEE_KRW: %w", err)
	}
	if cfg.PaymentMode == PaymentModeStripe {
		// Missing Stripe settings are reported per call as failed-precondition;
		// warn the operator early as well.
		for key, val := range map[string]string{
			"STRIPE_SECRET_KEY":     cfg.StripeSecretKey,
			"STRIPE_WEBHOOK_SECRET": cfg.StripeWebhookSecret,
			"STRIPE_SUCCESS_URL":    cfg.StripeSuccessURL,
			"STRIPE_CANCEL_URL":     cfg.StripeCancelURL,
		} {
			if val == "" {
				log.Printf("WARN: PAYMENT_MODE=stripe but %s is not set", key)
			}
		}
	}

	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@banju.example.com")
	cfg.MockServices = getEnv("MOCK_SERVICES", "") == "true"
	cfg.LogEmailsPath = getEnv("LOG_EMAILS", "")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "ap-northeast-2")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.PortfolioBaseURL = getEnv("PORTFOLIO_BASE_URL", "")
	cfg.AppName = getEnv("APP_NAME", "반주 매칭")
	cfg.WebBaseURL = getEnv("WEB_BASE_URL", "http://localhost:3000")
	cfg.SeedFile = getEnv("SEED_FILE", "")

	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.SmtpPort, err = getInt("SMTP_PORT", "587"); err != nil {
		return nil, err
	}
	if cfg.CaptchaTokenTTL, err = getSeconds("CAPTCHA_TOKEN_TTL", "1200"); err != nil {
		return nil, err
	}
	if cfg.GetCacheTTL, err = getSeconds("GET_CACHE_TTL_SECONDS", "60"); err != nil {
		return nil, err
	}
	if cfg.WebhookDedupeTTL, err = getSeconds("WEBHOOK_DEDUPE_TTL_SECONDS", "86400"); err != nil {
		return nil, err
	}

	// Rate Limiting
	if cfg.RateLimitSoftBucketSize, err = getInt("RATE_LIMIT_SOFT_BUCKET_SIZE", "2"); err != nil {
		return nil, err
	}
	if cfg.RateLimitSoftRefillRate, err = getInt("RATE_LIMIT_SOFT_REFILL_RATE", "1"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardBucketSize, err = getInt("RATE_LIMIT_HARD_BUCKET_SIZE", "8"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardRefillRate, err = getInt("RATE_LIMIT_HARD_REFILL_RATE", "4"); err != nil {
		return nil, err
	}

	return cfg, nil
}
