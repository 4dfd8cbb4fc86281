package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration, loaded once at startup and
// handed to the components that need it.
type Config struct {
	Server  ServerConfig
	Logger  LoggerConfig
	Auth    AuthConfig
	Redis   RedisConfig
	Mpesa   MpesaConfig
	Pesapal PesapalConfig
	Storage StorageConfig
	Mail    MailConfig
}

type ServerConfig struct {
	Port        string
	DatabaseURL string
	// BaseURL is the externally reachable origin, used to build payment
	// callback and IPN URLs.
	BaseURL string
}

type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

type AuthConfig struct {
	JWTSecret string
}

type RedisConfig struct {
	// URL is optional; when empty the cart store falls back to memory.
	URL string
}

type MpesaConfig struct {
	Environment    string // sandbox or production
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
}

type PesapalConfig struct {
	Environment    string // sandbox or live
	ConsumerKey    string
	ConsumerSecret string
	// IPNID is the pre-registered notification id; when empty one is
	// registered on first use.
	IPNID string
}

type StorageConfig struct {
	KeyID       string
	AppKey      string
	Bucket      string
	EndpointURL string
	Region      string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Mpesa: MpesaConfig{
			Environment:    getEnv("MPESA_ENVIRONMENT", "sandbox"),
			ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
			Shortcode:      os.Getenv("MPESA_SHORTCODE"),
			Passkey:        os.Getenv("MPESA_PASSKEY"),
		},
		Pesapal: PesapalConfig{
			Environment:    getEnv("PESAPAL_ENVIRONMENT", "sandbox"),
			ConsumerKey:    os.Getenv("PESAPAL_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("PESAPAL_CONSUMER_SECRET"),
			IPNID:          os.Getenv("PESAPAL_IPN_ID"),
		},
		Storage: StorageConfig{
			KeyID:       os.Getenv("B2_KEY_ID"),
			AppKey:      os.Getenv("B2_APP_KEY"),
			Bucket:      os.Getenv("B2_BUCKET_NAME"),
			EndpointURL: getEnv("B2_ENDPOINT_URL", "https://s3.us-east-005.backblazeb2.com"),
			Region:      getEnv("B2_REGION_NAME", "us-east-005"),
		},
		Mail: MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("MAIL_FROM", "orders@legitcollections.com"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}
	return nil
}

// MpesaConfigured reports whether all STK push credentials are present,
// together with the first missing field for the user-facing warning.
func (c *MpesaConfig) Configured() (bool, string) {
	switch {
	case c.ConsumerKey == "":
		return false, "M-Pesa consumer key not configured"
	case c.ConsumerSecret == "":
		return false, "M-Pesa consumer secret not configured"
	case c.Shortcode == "":
		return false, "M-Pesa business shortcode not configured"
	case c.Passkey == "":
		return false, "M-Pesa passkey not configured"
	}
	return true, ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
