package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	BusinessName  string
	TimestampZone string

	// Transactional email provider
	EmailProvider   string // auto, sendgrid, ses, stub
	SendGridAPIKey  string
	EmailFrom       string
	EmailFromName   string
	EmailTo         string
	SESFromEmail    string
	DispatchTimeout time.Duration

	// reCAPTCHA verification; an empty secret disables enforcement
	RecaptchaSecret   string
	RecaptchaEndpoint string
	RecaptchaTimeout  time.Duration

	// Rate limiting
	RateLimitBurst  int
	RateLimitWindow time.Duration

	// Redis (optional; enables the distributed rate limiter)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// HTTP surface
	CORSAllowedOrigins []string
	AdminJWTSecret     string

	// AWS (SES provider)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		BusinessName:  getEnv("BUSINESS_NAME", "Garage Door Pros"),
		TimestampZone: getEnv("TIMESTAMP_TZ", "America/New_York"),

		EmailProvider:   strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:       getEnv("EMAIL_FROM", ""),
		EmailFromName:   getEnv("EMAIL_FROM_NAME", "Garage Door Pros Website"),
		EmailTo:         getEnv("EMAIL_TO", ""),
		SESFromEmail:    getEnv("SES_FROM_EMAIL", ""),
		DispatchTimeout: getEnvAsDuration("DISPATCH_TIMEOUT", 10*time.Second),

		RecaptchaSecret:   getEnv("RECAPTCHA_SECRET_KEY", ""),
		RecaptchaEndpoint: getEnv("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		RecaptchaTimeout:  getEnvAsDuration("RECAPTCHA_TIMEOUT", 10*time.Second),

		RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 5),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", 60*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitAndTrim(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
