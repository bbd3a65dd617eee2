package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type ScyllaKeyspace struct {
	Keyspace string
	Role     string
	Password string
}

type Config struct {
	Port     string
	SiteURL  string
	Currency string

	StripeSecretKey     string
	StripeWebhookSecret string
	JWTSecret           string
	JWTTTL              time.Duration

	ScyllaHosts      []string
	ScyllaSSLEnabled bool
	ScyllaCAPath     string
	ScyllaProducts   ScyllaKeyspace
	ScyllaOrders     ScyllaKeyspace

	RedisHost     string
	RedisPassword string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
	MinIOBucket    string
	ImageURLTTL    time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	OpsEmail     string

	KafkaBrokers []string
	KafkaTopic   string

	VerifyTimeout     time.Duration
	ProcessorTimeout  time.Duration
	CheckoutRateLimit int64
	RateLimitWindow   time.Duration
}

// Load reads .env when present, then builds the configuration from the
// environment. A missing .env is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️ No .env file found, using the process environment")
	} else {
		log.Println("✅ .env loaded")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		SiteURL:  getEnv("SITE_URL", "http://localhost:5173"),
		Currency: strings.ToLower(getEnv("CURRENCY", "usd")),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTTTL:              duration("JWT_TTL", 24*time.Hour, &errs),

		ScyllaHosts:      splitList(os.Getenv("SCYLLA_HOSTS")),
		ScyllaSSLEnabled: strings.EqualFold(os.Getenv("SCYLLA_SSL_ENABLED"), "true"),
		ScyllaCAPath:     os.Getenv("SCYLLA_SSL_CA_PATH"),
		ScyllaProducts: ScyllaKeyspace{
			Keyspace: os.Getenv("SCYLLA_KS_PRODUCTS_KEYSPACE"),
			Role:     os.Getenv("SCYLLA_KS_PRODUCTS_ROLE"),
			Password: os.Getenv("SCYLLA_KS_PRODUCTS_PASSWORD"),
		},
		ScyllaOrders: ScyllaKeyspace{
			Keyspace: os.Getenv("SCYLLA_KS_ORDERS_KEYSPACE"),
			Role:     os.Getenv("SCYLLA_KS_ORDERS_ROLE"),
			Password: os.Getenv("SCYLLA_KS_ORDERS_PASSWORD"),
		},

		RedisHost:     getEnv("REDIS_HOST", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MinIOEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:    strings.EqualFold(os.Getenv("MINIO_USE_SSL"), "true"),
		MinIOBucket:    os.Getenv("MINIO_BUCKET"),
		ImageURLTTL:    duration("IMAGE_URL_TTL", time.Hour, &errs),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     integer("SMTP_PORT", 587, &errs),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		OpsEmail:     os.Getenv("OPS_EMAIL"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "orders.lifecycle"),

		VerifyTimeout:     duration("VERIFY_TIMEOUT", 15*time.Second, &errs),
		ProcessorTimeout:  duration("PROCESSOR_TIMEOUT", 10*time.Second, &errs),
		CheckoutRateLimit: int64(integer("CHECKOUT_RATE_LIMIT", 10, &errs)),
		RateLimitWindow:   duration("CHECKOUT_RATE_WINDOW", time.Minute, &errs),
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails on settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	require("STRIPE_SECRET_KEY", c.StripeSecretKey)
	require("JWT_SECRET", c.JWTSecret)
	require("SITE_URL", c.SiteURL)
	require("SCYLLA_KS_PRODUCTS_KEYSPACE", c.ScyllaProducts.Keyspace)
	require("SCYLLA_KS_ORDERS_KEYSPACE", c.ScyllaOrders.Keyspace)
	if len(c.ScyllaHosts) == 0 {
		errs = append(errs, errors.New("SCYLLA_HOSTS is required"))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("CURRENCY %q is not an ISO code", c.Currency))
	}
	if c.ScyllaSSLEnabled && c.ScyllaCAPath == "" {
		errs = append(errs, errors.New("SCYLLA_SSL_CA_PATH is required when SSL is enabled"))
	}
	return errors.Join(errs...)
}

// MailEnabled reports whether SMTP settings are complete.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPassword != ""
}

// ImagesEnabled reports whether MinIO settings are complete.
func (c *Config) ImagesEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOBucket != ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func duration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return fallback
	}
	return d
}

func integer(key string, fallback int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid number %q", key, raw))
		return fallback
	}
	return n
}
