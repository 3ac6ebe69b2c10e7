package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port     string
	Prod     bool
	MongoURI string
	MongoDB  string

	JWTSecret          string
	AccessTTLMinutes   int
	RefreshTTLDays     int
	VerifyTTLHours     int
	GoogleClientIDs    string // comma-separated audiences accepted for Google id_tokens
	AppleClientIDs     string // comma-separated bundle/service ids accepted for Apple
	RedisAddr          string
	RateLimitPerMin    int
	StrictRateLimitMin int

	RabbitURL      string
	EventsExchange string
	NotifyQueue    string
	NotifyWorkers  int

	// notify-worker email delivery
	EmailDriver  string // "smtp" | "resend" | "noop"
	EmailFrom    string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPTLS      bool
	ResendAPIKey string
}

func Load() Config {
	return Config{
		Port:     getenv("APP_PORT", "8080"),
		Prod:     getenv("APP_ENV", "dev") == "prod",
		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenv("MONGO_DB", "skinsense"),

		JWTSecret:          getenv("JWT_SECRET", "default_secret_key"),
		AccessTTLMinutes:   atoi(getenv("ACCESS_TTL_MINUTES", "30")),
		RefreshTTLDays:     atoi(getenv("REFRESH_TTL_DAYS", "7")),
		VerifyTTLHours:     atoi(getenv("VERIFY_TTL_HOURS", "24")),
		GoogleClientIDs:    getenv("GOOGLE_CLIENT_IDS", ""),
		AppleClientIDs:     getenv("APPLE_CLIENT_IDS", "app.skinsense.ios,app.skinsense.service"),
		RedisAddr:          getenv("REDIS_ADDR", "localhost:6379"),
		RateLimitPerMin:    atoi(getenv("RATE_LIMIT_PER_MIN", "10")),
		StrictRateLimitMin: atoi(getenv("STRICT_RATE_LIMIT_PER_MIN", "3")),

		RabbitURL:      getenv("RABBIT_URL", ""),
		EventsExchange: getenv("EVENTS_EXCHANGE", "auth.events"),
		NotifyQueue:    getenv("NOTIFY_QUEUE", "notify.emails"),
		NotifyWorkers:  atoi(getenv("NOTIFY_WORKERS", "8")),

		EmailDriver:  getenv("EMAIL_DRIVER", "noop"),
		EmailFrom:    getenv("EMAIL_FROM", "SkinSense <hello@skinsense.app>"),
		SMTPHost:     getenv("SMTP_HOST", "localhost"),
		SMTPPort:     atoi(getenv("SMTP_PORT", "587")),
		SMTPUser:     getenv("SMTP_USER", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPTLS:      getenv("SMTP_TLS", "true") == "true",
		ResendAPIKey: getenv("RESEND_API_KEY", ""),
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
