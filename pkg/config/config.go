package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Trial    TrialConfig
	Breaker  BreakerConfig
	Stripe   StripeConfig
	Email    EmailConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Cron     CronConfig
	Log      LogConfig
	SeedDemo bool
}

type ServerConfig struct {
	Port   string
	AppURL string
}

type DatabaseConfig struct {
	DSN          string
	MaxIdleConns int
	MaxOpenConns int
	QueryTimeout time.Duration
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type TrialConfig struct {
	LengthDays int
}

// BreakerConfig controls the circuit breakers in front of the account and
// subscription stores.
type BreakerConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

type StripeConfig struct {
	SecretKey          string
	WebhookSecret      string
	PriceBusinessPro   string
	PriceBusinessProYr string
	PriceEnterprise    string
	PriceEnterpriseYr  string
	SuccessURL         string
	CancelURL          string
}

type EmailConfig struct {
	Provider     string // resend | smtp
	ResendAPIKey string
	From         string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
}

type StorageConfig struct {
	AccountID string
	AccessKey string
	SecretKey string
	Bucket    string
	CDNBase   string
}

type RedisConfig struct {
	URL string
}

type CronConfig struct {
	TrialReminderSpec   string
	RenewalReminderSpec string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() *Config {
	godotenv.Load() // .env is optional outside local development

	return &Config{
		Server: ServerConfig{
			Port:   getEnv("PORT", "3000"),
			AppURL: strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			DSN:          getEnv("DATABASE_URL", ""),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 100),
			QueryTimeout: getEnvDuration("DB_QUERY_TIMEOUT", 2*time.Second),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Trial: TrialConfig{
			LengthDays: getEnvInt("TRIAL_LENGTH_DAYS", 14),
		},
		Breaker: BreakerConfig{
			FailureThreshold: uint32(getEnvInt("BREAKER_FAILURE_THRESHOLD", 5)),
			OpenTimeout:      getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
			HalfOpenRequests: uint32(getEnvInt("BREAKER_HALF_OPEN_REQUESTS", 1)),
		},
		Stripe: StripeConfig{
			SecretKey:          getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:      getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceBusinessPro:   getEnv("STRIPE_PRICE_BUSINESS_PRO", ""),
			PriceBusinessProYr: getEnv("STRIPE_PRICE_BUSINESS_PRO_YEARLY", ""),
			PriceEnterprise:    getEnv("STRIPE_PRICE_ENTERPRISE", ""),
			PriceEnterpriseYr:  getEnv("STRIPE_PRICE_ENTERPRISE_YEARLY", ""),
			SuccessURL:         getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/subscription?status=success"),
			CancelURL:          getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/subscription?status=cancelled"),
		},
		Email: EmailConfig{
			Provider:     strings.ToLower(getEnv("EMAIL_PROVIDER", "resend")),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "ApexMind <noreply@apexmind.ai>"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		},
		Storage: StorageConfig{
			AccountID: getEnv("R2_ACCOUNT_ID", ""),
			AccessKey: getEnv("R2_ACCESS_KEY", ""),
			SecretKey: getEnv("R2_SECRET_KEY", ""),
			Bucket:    getEnv("R2_BUCKET_NAME", ""),
			CDNBase:   strings.TrimRight(getEnv("CDN_BASE_URL", "https://cdn.apexmind.ai"), "/"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Cron: CronConfig{
			TrialReminderSpec:   getEnv("CRON_TRIAL_REMINDERS", "0 9 * * *"),
			RenewalReminderSpec: getEnv("CRON_RENEWAL_REMINDERS", "0 10 * * *"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		SeedDemo: getEnvBool("SEED_DEMO", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
