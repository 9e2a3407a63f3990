package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port         string
	RealtimePort string
	Environment  string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Scheduling policy
	StandardHorizon time.Duration // max lead time for STANDARD creators
	PremiumHorizon  time.Duration // 0 = no ceiling

	// Lifecycle
	DefaultEventDuration time.Duration // ONGOING length when no end time is set
	SweepInterval        time.Duration

	// Admission
	QueuePositionUpdate time.Duration
	QueuePositionTTL    time.Duration

	// Leaderboard
	ScoringFreezeWindow time.Duration // scoring window after the event's effective end

	// Donations
	DefaultFeeBasisPoints int64
	WebhookCredentialHash string // bcrypt hash of the payment webhook credential

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	// Missing .env is fine; the environment may be set by the runtime.
	_ = godotenv.Load()

	return &Config{
		// Server
		Port:         getEnv("PORT", "8090"),
		RealtimePort: getEnv("REALTIME_PORT", "8091"),
		Environment:  getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Policy
		StandardHorizon: getEnvAsDuration("STANDARD_HORIZON", "720h"),
		PremiumHorizon:  getEnvAsDuration("PREMIUM_HORIZON", "0"),

		// Lifecycle
		DefaultEventDuration: getEnvAsDuration("DEFAULT_EVENT_DURATION", "4h"),
		SweepInterval:        getEnvAsDuration("SWEEP_INTERVAL", "15s"),

		// Admission
		QueuePositionUpdate: getEnvAsDuration("QUEUE_POSITION_UPDATE", "2s"),
		QueuePositionTTL:    getEnvAsDuration("QUEUE_POSITION_TTL", "15s"),

		// Leaderboard
		ScoringFreezeWindow: getEnvAsDuration("SCORING_FREEZE_WINDOW", "24h"),

		// Donations
		DefaultFeeBasisPoints: int64(getEnvAsInt("DEFAULT_FEE_BASIS_POINTS", 500)),
		WebhookCredentialHash: getEnv("WEBHOOK_CREDENTIAL_HASH", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
