package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port           string
	MongoURI       string
	AllowedOrigins []string
	AppURL         string
	Timezone       string

	Redis    RedisConfig
	SMTP     SMTPConfig
	WhatsApp WhatsAppConfig
	Jobs     JobsConfig
	Token    TokenConfig
	Log      LogConfig
}

type RedisConfig struct {
	Enabled      bool
	URL          string
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	RetryDelay   time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

type SMTPConfig struct {
	Host      string
	Port      string
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// Enabled reports whether enough is configured to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.FromEmail != ""
}

type WhatsAppConfig struct {
	APIURL  string
	Token   string
	Timeout time.Duration
}

func (c WhatsAppConfig) Enabled() bool {
	return c.APIURL != "" && c.Token != ""
}

type JobsConfig struct {
	ReminderWindowDays int
	Workers            int
	Timeout            time.Duration
	ReconcileSchedule  string
	DispatchSchedule   string
	SchedulerEnabled   bool
	NotifyManagers     bool
	LockTTL            time.Duration
	NotificationTTL    time.Duration
	CleanupInterval    time.Duration
}

type TokenConfig struct {
	Secret string
	Expiry time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.WithError(err).WithField("timezone", c.Timezone).Warn("Unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}

func Load() (*Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("Could not read .env file")
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		return nil, errors.New("MONGO_URI environment variable is not set")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		MongoURI:       mongoURI,
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		AppURL:         strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		Timezone:       getEnv("TIMEZONE", "Europe/Lisbon"),
		Redis: RedisConfig{
			Enabled:      getBool("REDIS_ENABLED", true),
			URL:          os.Getenv("REDIS_URL"),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           getInt("REDIS_DB", 0),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			MaxRetries:   getInt("REDIS_MAX_RETRIES", 3),
			RetryDelay:   getDuration("REDIS_RETRY_DELAY", 500*time.Millisecond),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDuration("REDIS_POOL_TIMEOUT", 4*time.Second),
		},
		SMTP: SMTPConfig{
			Host:      os.Getenv("SMTP_HOST"),
			Port:      getEnv("SMTP_PORT", "587"),
			Username:  os.Getenv("SMTP_USERNAME"),
			Password:  os.Getenv("SMTP_PASSWORD"),
			FromEmail: os.Getenv("SMTP_FROM_EMAIL"),
			FromName:  getEnv("SMTP_FROM_NAME", "Sistema de Frota"),
		},
		WhatsApp: WhatsAppConfig{
			APIURL:  os.Getenv("WHATSAPP_API_URL"),
			Token:   os.Getenv("WHATSAPP_API_TOKEN"),
			Timeout: getDuration("WHATSAPP_TIMEOUT", 10*time.Second),
		},
		Jobs: JobsConfig{
			ReminderWindowDays: getInt("REMINDER_WINDOW_DAYS", 30),
			Workers:            getInt("JOB_WORKERS", 8),
			Timeout:            getDuration("JOB_TIMEOUT", 10*time.Minute),
			ReconcileSchedule:  getEnv("RECONCILE_SCHEDULE", "0 2 * * *"),
			DispatchSchedule:   getEnv("DISPATCH_SCHEDULE", "0 8 * * *"),
			SchedulerEnabled:   getBool("SCHEDULER_ENABLED", true),
			NotifyManagers:     getBool("NOTIFY_PRIMARY_MANAGERS", true),
			LockTTL:            getDuration("JOB_LOCK_TTL", 15*time.Minute),
			NotificationTTL:    getDuration("NOTIFICATION_LOG_TTL", 180*24*time.Hour),
			CleanupInterval:    getDuration("NOTIFICATION_CLEANUP_INTERVAL", 24*time.Hour),
		},
		Token: TokenConfig{
			Secret: os.Getenv("CONFIRM_TOKEN_SECRET"),
			Expiry: getDuration("CONFIRM_TOKEN_EXPIRY", 45*24*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if cfg.Jobs.ReminderWindowDays <= 0 {
		return nil, errors.New("REMINDER_WINDOW_DAYS must be positive")
	}
	if cfg.Jobs.Workers <= 0 {
		cfg.Jobs.Workers = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.WithField("key", key).Warn("Invalid integer in environment, using default")
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.WithField("key", key).Warn("Invalid boolean in environment, using default")
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.WithField("key", key).Warn("Invalid duration in environment, using default")
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
