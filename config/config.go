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

type Config struct {
	Server       ServerConfig
	Log          LogConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Redis        RedisConfig
	Storage      StorageConfig
	S3           S3Config
	Mail         MailConfig
	Notification NotificationConfig
	Scheduler    SchedulerConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	PublicURL   string // 이메일 링크 등에 쓰이는 외부 주소
}

type LogConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type StorageConfig struct {
	Driver       string // s3, local
	LocalDir     string
	LocalBaseURL string
	MaxFileSize  int64
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type MailConfig struct {
	Provider       string // sendgrid, smtp, log
	FromAddress    string
	FromName       string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
}

type NotificationConfig struct {
	QueueBackend   string // redis, memory
	QueueKey       string
	QueueSize      int
	Workers        int
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type SchedulerConfig struct {
	RatingReconcileCron string // 비어 있으면 비활성화
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			PublicURL:   getEnv("PUBLIC_URL", "http://localhost:3000"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "bizreview"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		Storage: StorageConfig{
			Driver:       getEnv("STORAGE_DRIVER", "local"),
			LocalDir:     getEnv("STORAGE_LOCAL_DIR", "./uploads"),
			LocalBaseURL: getEnv("STORAGE_LOCAL_BASE_URL", "/uploads"),
			MaxFileSize:  int64(parseInt(getEnv("STORAGE_MAX_FILE_SIZE", "52428800"), 50*1024*1024)),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-northeast-2"),
			Bucket:          getEnv("AWS_S3_BUCKET", "bizreview-uploads"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Mail: MailConfig{
			Provider:       getEnv("MAIL_PROVIDER", "log"),
			FromAddress:    getEnv("MAIL_FROM_ADDRESS", "no-reply@bizreview.local"),
			FromName:       getEnv("MAIL_FROM_NAME", "BizReview"),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			SMTPHost:       getEnv("SMTP_HOST", "localhost"),
			SMTPPort:       getEnv("SMTP_PORT", "587"),
			SMTPUsername:   getEnv("SMTP_USERNAME", ""),
			SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		},
		Notification: NotificationConfig{
			QueueBackend:   getEnv("NOTIFICATION_QUEUE", "memory"),
			QueueKey:       getEnv("NOTIFICATION_QUEUE_KEY", "bizreview:email_jobs"),
			QueueSize:      parseInt(getEnv("NOTIFICATION_QUEUE_SIZE", "1000"), 1000),
			Workers:        parseInt(getEnv("NOTIFICATION_WORKERS", "2"), 2),
			MaxRetries:     uint64(parseInt(getEnv("NOTIFICATION_MAX_RETRIES", "5"), 5)),
			InitialBackoff: parseDuration(getEnv("NOTIFICATION_INITIAL_BACKOFF", "30s"), 30*time.Second),
			MaxBackoff:     parseDuration(getEnv("NOTIFICATION_MAX_BACKOFF", "10m"), 10*time.Minute),
		},
		Scheduler: SchedulerConfig{
			RatingReconcileCron: getEnv("RATING_RECONCILE_CRON", ""),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
