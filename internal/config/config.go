package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	TokenStorePostgres = "postgres"
	TokenStoreRedis    = "redis"
)

type Config struct {
	AppEnv   string `env:"APP_ENV"`
	HTTPPort int    `env:"HTTP_PORT"`

	DBConfig struct {
		Host     string `env:"MARKETPLACE_DB_HOST"`
		Port     int    `env:"MARKETPLACE_DB_PORT"`
		User     string `env:"MARKETPLACE_DB_USER"`
		Password string `env:"MARKETPLACE_DB_PASSWORD"`
		Name     string `env:"MARKETPLACE_DB_NAME"`
		SSLMode  string `env:"MARKETPLACE_DB_SSLMODE"`
	}
	MigrationsPath string `env:"MIGRATIONS_PATH"`

	KafkaBrokerURL           string `env:"KAFKA_BROKER_URL"`
	KafkaPaymentEventsTopic  string `env:"KAFKA_PAYMENT_EVENTS_TOPIC"`
	KafkaSellerAccountsTopic string `env:"KAFKA_SELLER_ACCOUNTS_TOPIC"`
	KafkaConsumerGroup       string `env:"KAFKA_CONSUMER_GROUP"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL"`
	OutboxPollTimeout  time.Duration `env:"OUTBOX_POLL_TIMEOUT"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE"`
	OutboxMaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS"`

	TokenStore           string        `env:"TOKEN_STORE"`
	RedisURL             string        `env:"REDIS_URL"`
	RedisTokensKey       string        `env:"REDIS_TOKENS_KEY"`
	TokenRefreshInterval time.Duration `env:"TOKEN_REFRESH_INTERVAL"`
	DevTokensFile        string        `env:"DEV_TOKENS_FILE"`

	Stripe struct {
		APIURL           string        `env:"STRIPE_API_URL"`
		SecretKey        string        `env:"STRIPE_SECRET_KEY"`
		WebhookSecret    string        `env:"STRIPE_WEBHOOK_SECRET"`
		WebhookTolerance time.Duration `env:"STRIPE_WEBHOOK_TOLERANCE"`
	}
	ProcessorTimeout   time.Duration `env:"PROCESSOR_TIMEOUT"`
	CheckoutSuccessURL string        `env:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL  string        `env:"CHECKOUT_CANCEL_URL"`
	Currency           string        `env:"CURRENCY"`
	PlatformFeePercent int           `env:"PLATFORM_FEE_PERCENT"`

	PendingExpiryHorizon time.Duration `env:"PENDING_EXPIRY_HORIZON"`
	PendingSweepInterval time.Duration `env:"PENDING_SWEEP_INTERVAL"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.AppEnv = getEnvOrDefault("APP_ENV", EnvDevelopment)
	cfg.HTTPPort = getEnvAsInt("HTTP_PORT", 8080)

	cfg.DBConfig.Host = getEnvOrDefault("MARKETPLACE_DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("MARKETPLACE_DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("MARKETPLACE_DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("MARKETPLACE_DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("MARKETPLACE_DB_NAME", "marketplace_db")
	cfg.DBConfig.SSLMode = getEnvOrDefault("MARKETPLACE_DB_SSLMODE", "disable")
	cfg.MigrationsPath = getEnvOrDefault("MIGRATIONS_PATH", "file:///app/migrations")

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaPaymentEventsTopic = getEnvOrDefault("KAFKA_PAYMENT_EVENTS_TOPIC", "payment_events")
	cfg.KafkaSellerAccountsTopic = getEnvOrDefault("KAFKA_SELLER_ACCOUNTS_TOPIC", "seller_account_linked")
	cfg.KafkaConsumerGroup = getEnvOrDefault("KAFKA_CONSUMER_GROUP", "marketplace-group")

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 1*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 500*time.Millisecond)
	cfg.OutboxBatchSize = getEnvAsInt("OUTBOX_BATCH_SIZE", 10)
	cfg.OutboxMaxAttempts = getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 5)

	cfg.TokenStore = getEnvOrDefault("TOKEN_STORE", TokenStorePostgres)
	cfg.RedisURL = getEnvOrDefault("REDIS_URL", "localhost:6379")
	cfg.RedisTokensKey = getEnvOrDefault("REDIS_TOKENS_KEY", "marketplace:auth_tokens")
	cfg.TokenRefreshInterval = getEnvAsDuration("TOKEN_REFRESH_INTERVAL", 30*time.Second)
	cfg.DevTokensFile = getEnvOrDefault("DEV_TOKENS_FILE", "")

	cfg.Stripe.APIURL = getEnvOrDefault("STRIPE_API_URL", "https://api.stripe.com")
	cfg.Stripe.SecretKey = getEnvOrDefault("STRIPE_SECRET_KEY", "")
	cfg.Stripe.WebhookSecret = getEnvOrDefault("STRIPE_WEBHOOK_SECRET", "")
	cfg.Stripe.WebhookTolerance = getEnvAsDuration("STRIPE_WEBHOOK_TOLERANCE", 300*time.Second)
	cfg.ProcessorTimeout = getEnvAsDuration("PROCESSOR_TIMEOUT", 10*time.Second)
	cfg.CheckoutSuccessURL = getEnvOrDefault("CHECKOUT_SUCCESS_URL", "http://localhost:5173/checkout/success")
	cfg.CheckoutCancelURL = getEnvOrDefault("CHECKOUT_CANCEL_URL", "http://localhost:5173/checkout/cancel")
	cfg.Currency = strings.ToLower(getEnvOrDefault("CURRENCY", "usd"))
	cfg.PlatformFeePercent = getEnvAsInt("PLATFORM_FEE_PERCENT", 0)

	cfg.PendingExpiryHorizon = getEnvAsDuration("PENDING_EXPIRY_HORIZON", 0)
	cfg.PendingSweepInterval = getEnvAsDuration("PENDING_SWEEP_INTERVAL", 5*time.Minute)

	cfg.CORSAllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT %d out of range", c.HTTPPort))
	}
	if c.TokenStore != TokenStorePostgres && c.TokenStore != TokenStoreRedis {
		errs = append(errs, fmt.Errorf("TOKEN_STORE must be %q or %q, got %q", TokenStorePostgres, TokenStoreRedis, c.TokenStore))
	}
	if c.PlatformFeePercent < 0 || c.PlatformFeePercent > 100 {
		errs = append(errs, fmt.Errorf("PLATFORM_FEE_PERCENT %d out of range", c.PlatformFeePercent))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("OUTBOX_BATCH_SIZE must be positive"))
	}
	if c.OutboxPollInterval <= 0 {
		errs = append(errs, errors.New("OUTBOX_POLL_INTERVAL must be positive"))
	}
	if c.PendingExpiryHorizon < 0 {
		errs = append(errs, errors.New("PENDING_EXPIRY_HORIZON must not be negative"))
	}
	if c.IsProduction() {
		if c.Stripe.SecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required in production"))
		}
		if c.Stripe.WebhookSecret == "" {
			errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required in production"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
