// Package config loads process configuration from the environment, an
// optional .env file and an optional config file named by CONFIG_FILE.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Origins the storefront and admin frontends are served from.
var fixedOrigins = []string{
	"https://snapeat.vercel.app",
	"https://snapeat-admin.vercel.app",
}

var ErrInvalidConfig = errors.New("invalid configuration")

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// Configured reports whether both gateway credentials are present.
func (r RazorpayConfig) Configured() bool {
	return r.KeyID != "" && r.KeySecret != ""
}

type MongoConfig struct {
	URI    string
	DBName string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type PricingConfig struct {
	ShippingCost decimal.Decimal
	TaxAmount    decimal.Decimal
	Currency     string
}

type Config struct {
	HTTPPort        string
	GRPCPort        string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	HealthInterval  time.Duration

	Razorpay       RazorpayConfig
	FrontendURL    string
	AllowedOrigins []string

	Mongo    MongoConfig
	Redis    RedisConfig
	Postgres PostgresConfig

	MigrationsPath string
	CatalogDBPath  string
	KafkaBrokers   []string
	JWTSecret      string

	Pricing          PricingConfig
	SessionIdleTTL   time.Duration
	UserFetchTimeout time.Duration
	OTLPEndpoint     string
}

func (c *Config) CheckoutMigrationsPath() string {
	return filepath.Join(c.MigrationsPath, "checkout", "repository", "migrations")
}

func (c *Config) OrdersMigrationsPath() string {
	return filepath.Join(c.MigrationsPath, "orders", "repository", "migrations")
}

func (c *Config) CatalogMigrationsPath() string {
	return filepath.Join(c.MigrationsPath, "catalog", "repository", "migrations")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8000")
	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("HEALTH_INTERVAL", "15s")

	v.SetDefault("RAZORPAY_KEY_ID", "")
	v.SetDefault("RAZORPAY_KEY_SECRET", "")
	v.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com")
	v.SetDefault("RAZORPAY_TIMEOUT", "10s")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "snapeat")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "snapeat")

	v.SetDefault("MIGRATIONS_PATH", "./internal")
	v.SetDefault("CATALOG_DB_PATH", "./catalog.db")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("JWT_SECRET", "")

	v.SetDefault("SHIPPING_COST", "25")
	v.SetDefault("TAX_AMOUNT", "15")
	v.SetDefault("CURRENCY", "INR")
	v.SetDefault("SESSION_IDLE_TTL", "30m")
	v.SetDefault("USER_FETCH_TIMEOUT", "3s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
}

// Load reads envFile when it exists, then the environment, then CONFIG_FILE.
// Environment values win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	shipping, err := decimal.NewFromString(v.GetString("SHIPPING_COST"))
	if err != nil {
		return nil, fmt.Errorf("%w: SHIPPING_COST: %w", ErrInvalidConfig, err)
	}
	tax, err := decimal.NewFromString(v.GetString("TAX_AMOUNT"))
	if err != nil {
		return nil, fmt.Errorf("%w: TAX_AMOUNT: %w", ErrInvalidConfig, err)
	}

	cfg := &Config{
		HTTPPort:        v.GetString("HTTP_PORT"),
		GRPCPort:        v.GetString("GRPC_PORT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		HealthInterval:  v.GetDuration("HEALTH_INTERVAL"),
		Razorpay: RazorpayConfig{
			KeyID:     v.GetString("RAZORPAY_KEY_ID"),
			KeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
			BaseURL:   v.GetString("RAZORPAY_BASE_URL"),
			Timeout:   v.GetDuration("RAZORPAY_TIMEOUT"),
		},
		FrontendURL: v.GetString("FRONTEND_URL"),
		Mongo: MongoConfig{
			URI:    v.GetString("MONGO_URI"),
			DBName: v.GetString("MONGO_DB_NAME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Postgres: PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
		},
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),
		CatalogDBPath:  v.GetString("CATALOG_DB_PATH"),
		KafkaBrokers:   splitList(v.GetString("KAFKA_BROKERS")),
		JWTSecret:      v.GetString("JWT_SECRET"),
		Pricing: PricingConfig{
			ShippingCost: shipping,
			TaxAmount:    tax,
			Currency:     strings.ToUpper(v.GetString("CURRENCY")),
		},
		SessionIdleTTL:   v.GetDuration("SESSION_IDLE_TTL"),
		UserFetchTimeout: v.GetDuration("USER_FETCH_TIMEOUT"),
		OTLPEndpoint:     v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	cfg.AllowedOrigins = allowedOrigins(cfg.FrontendURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Razorpay.Configured() {
		log.Println("Razorpay keys not found in environment variables")
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.HTTPPort == "" {
		problems = append(problems, "HTTP_PORT is empty")
	}
	if c.Pricing.ShippingCost.IsNegative() {
		problems = append(problems, "SHIPPING_COST is negative")
	}
	if c.Pricing.TaxAmount.IsNegative() {
		problems = append(problems, "TAX_AMOUNT is negative")
	}
	if len(c.Pricing.Currency) != 3 {
		problems = append(problems, "CURRENCY must be a 3 letter code")
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT must be positive")
	}
	if len(c.KafkaBrokers) == 0 {
		problems = append(problems, "KAFKA_BROKERS is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func allowedOrigins(frontend string) []string {
	origins := append([]string{}, fixedOrigins...)
	if frontend != "" {
		origins = append(origins, strings.TrimRight(frontend, "/"))
	}
	return origins
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
