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
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Auth     AuthConfig
	Content  ContentConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	RealtimeLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	// InstanceID tags change notifications so an instance ignores its own
	// writes coming back over Redis. Empty means generated at startup.
	InstanceID string
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver     string
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

// Enabled reports whether transcript mails can be sent.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Email != ""
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type ContentConfig struct {
	TreeCollection     string
	TreeDocument       string
	BrandingCollection string
	BrandingDocument   string
	SessionCollection  string
	OperatorCollection string
	DefaultLanguage    string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			RealtimeLogPath:    getEnv("REALTIME_LOG_FILE_PATH", "logs/realtime.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			InstanceID:         getEnv("INSTANCE_ID", ""),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Help Desk"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "default_secret"),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 12*time.Hour),
		},
		Content: ContentConfig{
			TreeCollection:     getEnv("CONTENT_TREE_COLLECTION", "knowledgeBase"),
			TreeDocument:       getEnv("CONTENT_TREE_DOCUMENT", "main"),
			BrandingCollection: getEnv("CONTENT_BRANDING_COLLECTION", "widgetConfig"),
			BrandingDocument:   getEnv("CONTENT_BRANDING_DOCUMENT", "main"),
			SessionCollection:  getEnv("CHAT_COLLECTION", "chats"),
			OperatorCollection: getEnv("OPERATOR_COLLECTION", "operators"),
			DefaultLanguage:    getEnv("DEFAULT_LANGUAGE", "np"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "helpdesk-be"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
