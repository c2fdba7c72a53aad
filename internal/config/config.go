package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	AdminJWTSecret  string
	AdminJWTTTL     time.Duration
	GoogleAudience  string
	AllowOrigins    []string
	LogstashTCPAddr string

	SessionTTL              time.Duration
	AccountCacheTTL         time.Duration
	FullValidationInterval  time.Duration
	ExpiryCheckInterval     time.Duration
	ApproachingExpiryWindow time.Duration
	SessionRenewalThreshold time.Duration
	JanitorSweepInterval    time.Duration
	JanitorBatchSize        int

	MinIOEndpoint    string
	MinIOAccessKey   string
	MinIOSecretKey   string
	MinIOUseSSL      bool
	MinIOBucketAudit string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	batchSize := 200
	if v, err := strconv.Atoi(getenv("JANITOR_BATCH_SIZE", "200")); err == nil && v > 0 {
		batchSize = v
	}

	return Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     must("DATABASE_URL"),
		AdminJWTSecret:  must("ADMIN_JWT_SECRET"),
		AdminJWTTTL:     duration("ADMIN_JWT_TTL", 8*time.Hour),
		GoogleAudience:  getenv("GOOGLE_AUDIENCE", ""),
		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),

		SessionTTL:              duration("SESSION_TTL", time.Hour),
		AccountCacheTTL:         duration("ACCOUNT_CACHE_TTL", 5*time.Minute),
		FullValidationInterval:  duration("FULL_VALIDATION_INTERVAL", 5*time.Minute),
		ExpiryCheckInterval:     duration("EXPIRY_CHECK_INTERVAL", 3*time.Minute),
		ApproachingExpiryWindow: duration("APPROACHING_EXPIRY_WINDOW", 30*time.Minute),
		SessionRenewalThreshold: duration("SESSION_RENEWAL_THRESHOLD", 5*time.Minute),
		JanitorSweepInterval:    duration("JANITOR_SWEEP_INTERVAL", 5*time.Minute),
		JanitorBatchSize:        batchSize,

		MinIOEndpoint:    getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:   getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:   getenv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:      getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucketAudit: getenv("MINIO_BUCKET_AUDIT", "license-session-audit"),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", ""),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
	}
}

func duration(k string, d time.Duration) time.Duration {
	raw := getenv(k, "")
	if raw == "" {
		return d
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		log.Printf("Warning: invalid duration for %s: %q, using default %s", k, raw, d)
		return d
	}
	return parsed
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
