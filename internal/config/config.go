package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends understood by bootstrap.
const (
	StoreBackendAuto     = "auto"
	StoreBackendPostgres = "postgres"
	StoreBackendDynamoDB = "dynamodb"
	StoreBackendMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Model provider
	GeminiAPIKey      string
	DefaultAIModel    string
	WebhookToolRounds int
	ModelTimeout      time.Duration

	// Document store
	StoreBackend        string
	DatabaseURL         string
	DynamoTablePrefix   string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Knowledge cache
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	KnowledgeCacheTTL time.Duration

	// Transport
	TwilioAuthToken     string
	WebhookRateLimitRPS float64
	WebhookRateBurst    int

	// Admin API
	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// Booking notifications
	BookingNotifyEmail string
	SendGridAPIKey     string
	SendGridFromEmail  string
	SendGridFromName   string
	SESFromEmail       string

	// Conversation archive
	ArchiveBucket string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		DefaultAIModel:    getEnv("DEFAULT_AI_MODEL", ""),
		WebhookToolRounds: getEnvAsInt("WEBHOOK_TOOL_ROUNDS", 1),
		ModelTimeout:      getEnvAsDuration("MODEL_TIMEOUT", 25*time.Second),

		StoreBackend:        strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", StoreBackendAuto))),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DynamoTablePrefix:   getEnv("DYNAMO_TABLE_PREFIX", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		KnowledgeCacheTTL: getEnvAsDuration("KNOWLEDGE_CACHE_TTL", time.Hour),

		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		WebhookRateLimitRPS: getEnvAsFloat("WEBHOOK_RATE_LIMIT_RPS", 5),
		WebhookRateBurst:    getEnvAsInt("WEBHOOK_RATE_BURST", 10),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		BookingNotifyEmail: getEnv("BOOKING_NOTIFY_EMAIL", ""),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:  getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:   getEnv("SENDGRID_FROM_NAME", "Lysandra"),
		SESFromEmail:       getEnv("SES_FROM_EMAIL", ""),

		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),
	}
}

// ResolvedStoreBackend picks the document store backend. In auto mode the
// first backend with credentials wins; "" means no credentials are present.
func (c *Config) ResolvedStoreBackend() string {
	switch c.StoreBackend {
	case StoreBackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return ""
		}
		return StoreBackendPostgres
	case StoreBackendDynamoDB:
		if strings.TrimSpace(c.DynamoTablePrefix) == "" {
			return ""
		}
		return StoreBackendDynamoDB
	case StoreBackendMemory:
		return StoreBackendMemory
	}
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return StoreBackendPostgres
	}
	if strings.TrimSpace(c.DynamoTablePrefix) != "" {
		return StoreBackendDynamoDB
	}
	return ""
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
