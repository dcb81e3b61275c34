package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
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

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string

	// Inquiry lifecycle
	RewardAfter         time.Duration // SENT inquiries older than this refund the sender
	FirstReminderAfter  time.Duration // first nudge to the recipient
	SecondReminderAfter time.Duration // second and final nudge
	EscalationSchedule  string        // cron spec for the periodic escalation scan

	// Notifications
	LimitReachedMuteWindow time.Duration // one pool-exhausted notification per window

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string

	// App Defaults
	AppName string

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "playmaker")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "8081")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "kontakt@playmaker.pro")
	cfg.AppName = getEnv("APP_NAME", "PlayMaker")
	cfg.EscalationSchedule = getEnv("ESCALATION_SCHEDULE", "0 4 * * *")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	rewardAfterDays, err := strconv.Atoi(getEnv("REWARD_AFTER_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid REWARD_AFTER_DAYS: %w", err)
	}
	cfg.RewardAfter = time.Duration(rewardAfterDays) * 24 * time.Hour

	firstReminderDays, err := strconv.Atoi(getEnv("FIRST_REMINDER_AFTER_DAYS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid FIRST_REMINDER_AFTER_DAYS: %w", err)
	}
	cfg.FirstReminderAfter = time.Duration(firstReminderDays) * 24 * time.Hour

	secondReminderDays, err := strconv.Atoi(getEnv("SECOND_REMINDER_AFTER_DAYS", "6"))
	if err != nil {
		return nil, fmt.Errorf("invalid SECOND_REMINDER_AFTER_DAYS: %w", err)
	}
	cfg.SecondReminderAfter = time.Duration(secondReminderDays) * 24 * time.Hour

	muteWindowDays, err := strconv.Atoi(getEnv("LIMIT_REACHED_MUTE_WINDOW_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid LIMIT_REACHED_MUTE_WINDOW_DAYS: %w", err)
	}
	cfg.LimitReachedMuteWindow = time.Duration(muteWindowDays) * 24 * time.Hour

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
