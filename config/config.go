package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	AllowedOrigins    string `mapstructure:"ALLOWED_ORIGINS"`

	// Document store.
	StoreDriver  string `mapstructure:"STORE_DRIVER"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Identity verification: "firebase" or "jwt".
	AuthMode                  string `mapstructure:"AUTH_MODE"`
	JWTSecret                 string `mapstructure:"JWT_SECRET"`
	FirebaseCredentialsFile   string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseBroadcastTopic    string `mapstructure:"FIREBASE_BROADCAST_TOPIC"`
	FirebaseMessagingDisabled bool   `mapstructure:"FIREBASE_MESSAGING_DISABLED"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisLockDB   int    `mapstructure:"REDIS_LOCK_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Payments.
	Currency               string        `mapstructure:"CURRENCY"`
	PaymentProviderTimeout time.Duration `mapstructure:"PAYMENT_PROVIDER_TIMEOUT"`
	PaymentReferenceTTL    time.Duration `mapstructure:"PAYMENT_REFERENCE_TTL"`
	StripeKey              string        `mapstructure:"STRIPE_KEY"`
	MTNBaseURL             string        `mapstructure:"MTN_BASE_URL"`
	MTNAPIKey              string        `mapstructure:"MTN_API_KEY"`
	AirtelBaseURL          string        `mapstructure:"AIRTEL_BASE_URL"`
	AirtelAPIKey           string        `mapstructure:"AIRTEL_API_KEY"`
	AggregatorBaseURL      string        `mapstructure:"AGGREGATOR_BASE_URL"`
	AggregatorSecretKey    string        `mapstructure:"AGGREGATOR_SECRET_KEY"`
	AggregatorCallbackURL  string        `mapstructure:"AGGREGATOR_CALLBACK_URL"`

	// Notifications.
	SMTPHost                 string `mapstructure:"SMTP_HOST"`
	SMTPPort                 int    `mapstructure:"SMTP_PORT"`
	SMTPUsername             string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword             string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom                 string `mapstructure:"SMTP_FROM"`
	SMSGatewayURL            string `mapstructure:"SMS_GATEWAY_URL"`
	SMSAPIKey                string `mapstructure:"SMS_API_KEY"`
	SMSSenderID              string `mapstructure:"SMS_SENDER_ID"`
	NotificationMaxAttempts  int    `mapstructure:"NOTIFICATION_MAX_ATTEMPTS"`
	NotificationRetryCron    string `mapstructure:"NOTIFICATION_RETRY_CRON"`
	NotificationRetryLimit   int    `mapstructure:"NOTIFICATION_RETRY_LIMIT"`
	NotificationWorkerEnable bool   `mapstructure:"NOTIFICATION_WORKER_ENABLED"`

	// Booking status events.
	AMQPURL string `mapstructure:"AMQP_URL"`
}

// LoadConfig reads config.yaml (if any), .env (if any) and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, continuing")
	}

	v := viper.New()
	// Look for a config file named "config.yaml" in the current and "config" directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("STORE_DRIVER", "mongo")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "rentwheels")
	v.SetDefault("AUTH_MODE", "firebase")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "serviceAccountKey.json")
	v.SetDefault("FIREBASE_BROADCAST_TOPIC", "broadcast")
	v.SetDefault("FIREBASE_MESSAGING_DISABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_LOCK_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("CURRENCY", "RWF")
	v.SetDefault("PAYMENT_PROVIDER_TIMEOUT", "30s")
	v.SetDefault("PAYMENT_REFERENCE_TTL", "1h")
	v.SetDefault("STRIPE_KEY", "")
	v.SetDefault("MTN_BASE_URL", "")
	v.SetDefault("MTN_API_KEY", "")
	v.SetDefault("AIRTEL_BASE_URL", "")
	v.SetDefault("AIRTEL_API_KEY", "")
	v.SetDefault("AGGREGATOR_BASE_URL", "https://api.paystack.co")
	v.SetDefault("AGGREGATOR_SECRET_KEY", "")
	v.SetDefault("AGGREGATOR_CALLBACK_URL", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "no-reply@rentwheels.local")
	v.SetDefault("SMS_GATEWAY_URL", "")
	v.SetDefault("SMS_API_KEY", "")
	v.SetDefault("SMS_SENDER_ID", "RENTWHEELS")
	v.SetDefault("NOTIFICATION_MAX_ATTEMPTS", 5)
	v.SetDefault("NOTIFICATION_RETRY_CRON", "@every 5m")
	v.SetDefault("NOTIFICATION_RETRY_LIMIT", 50)
	v.SetDefault("NOTIFICATION_WORKER_ENABLED", true)
	v.SetDefault("AMQP_URL", "")
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("config: unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.AuthMode {
	case "firebase":
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("config: JWT_SECRET is required when AUTH_MODE=jwt")
		}
	default:
		return fmt.Errorf("config: unsupported AUTH_MODE %q", c.AuthMode)
	}
	if c.PaymentProviderTimeout <= 0 {
		return fmt.Errorf("config: PAYMENT_PROVIDER_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
