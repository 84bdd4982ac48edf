package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	EasySMS  EasySMSConfig
	Calendly CalendlyConfig
	Storage  StorageConfig
	SeedDemo bool
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type JWTConfig struct {
	Secret string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type EasySMSConfig struct {
	APIKey  string
	BaseURL string
	Sender  string
}

type CalendlyConfig struct {
	WebhookSigningKey string
}

type StorageConfig struct {
	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
	PublicURL   string
}

func Load() *Config {
	godotenv.Load() // load .env if present

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "appointmenthub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		EasySMS: EasySMSConfig{
			APIKey:  getEnv("EASYSMS_API_KEY", ""),
			BaseURL: getEnv("EASYSMS_BASE_URL", "https://api.easysms.gr"),
			Sender:  getEnv("EASYSMS_SENDER", ""),
		},
		Calendly: CalendlyConfig{
			WebhookSigningKey: getEnv("CALENDLY_WEBHOOK_SIGNING_KEY", ""),
		},
		Storage: StorageConfig{
			S3Bucket:    getEnv("S3_BUCKET", ""),
			S3Region:    getEnv("S3_REGION", "eu-central-1"),
			S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("S3_SECRET_KEY", ""),
			S3Endpoint:  getEnv("S3_ENDPOINT", ""),
			PublicURL:   getEnv("S3_PUBLIC_URL", ""),
		},
		SeedDemo: getEnv("SEED_DEMO", "") != "",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
