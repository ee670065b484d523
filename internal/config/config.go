package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains runtime configuration values for the qrforge backend.
type Config struct {
	Environment string
	HTTPPort    string

	MongoURI      string
	MongoDatabase string

	// RedisAddr enables the request rate limiters when set. Empty disables them.
	RedisAddr     string
	RedisPassword string

	JWTSecret  string
	SessionTTL time.Duration

	OTPTTL    time.Duration
	OTPDigits int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailTimeout  time.Duration

	GoogleClientID string
	GoogleTimeout  time.Duration

	// PublicBaseURL is the frontend origin hosting the QR details pages.
	PublicBaseURL string

	S3Region    string
	S3Bucket    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	RateLimitWindow      time.Duration
	RateLimitMaxAttempts int
}

// Load reads configuration from environment variables with sane defaults.
// It fails fast on values the service cannot run without.
func Load() (Config, error) {
	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		MongoURI:             os.Getenv("MONGO_URI"),
		MongoDatabase:        getEnv("MONGO_DATABASE", "qrforge"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		SessionTTL:           getDuration("SESSION_TTL", 24*time.Hour),
		OTPTTL:               getDuration("OTP_TTL", 10*time.Minute),
		OTPDigits:            getInt("OTP_DIGITS", 6),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             getInt("SMTP_PORT", 587),
		SMTPUsername:         os.Getenv("SMTP_USERNAME"),
		SMTPPassword:         os.Getenv("SMTP_PASSWORD"),
		MailFrom:             getEnv("MAIL_FROM", "no-reply@qrforge.dev"),
		MailTimeout:          getDuration("MAIL_TIMEOUT", 10*time.Second),
		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleTimeout:        getDuration("GOOGLE_TIMEOUT", 10*time.Second),
		PublicBaseURL:        getEnv("PUBLIC_BASE_URL", "http://localhost:5173"),
		S3Region:             getEnv("S3_REGION", "us-east-1"),
		S3Bucket:             os.Getenv("S3_BUCKET"),
		S3Endpoint:           os.Getenv("S3_ENDPOINT"),
		S3AccessKey:          os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:          os.Getenv("S3_SECRET_KEY"),
		RateLimitWindow:      getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMaxAttempts: getInt("RATE_LIMIT_MAX_ATTEMPTS", 10),
	}

	if cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if cfg.OTPDigits < 4 || cfg.OTPDigits > 10 {
		return Config{}, fmt.Errorf("OTP_DIGITS must be between 4 and 10")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production hardening
// (secure cookies, no internal error details in responses).
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
