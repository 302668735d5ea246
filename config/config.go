package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Record store configuration
	StoreURL     string
	StoreAPIKey  string
	StoreTimeout time.Duration

	// Checkout provider configuration
	CheckoutKeyID      string
	CheckoutKeySecret  string
	CheckoutBaseURL    string
	CheckoutScriptURL  string
	CheckoutCurrency   string
	DisplayName        string
	DisplayDescription string
	ThemeColor         string

	// Ticketing configuration
	TicketPrice        int
	PostPurchasePath   string
	PendingCheckoutTTL time.Duration

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Ops token (bcrypt hash) guarding the simulation endpoint
	OpsTokenHash string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Record store
		StoreURL:     getEnv("STORE_URL", "http://localhost:54321/rest/v1"),
		StoreAPIKey:  getEnv("STORE_API_KEY", ""),
		StoreTimeout: getEnvAsDuration("STORE_TIMEOUT", "10s"),

		// Checkout provider
		CheckoutKeyID:      getEnv("CHECKOUT_KEY_ID", ""),
		CheckoutKeySecret:  getEnv("CHECKOUT_KEY_SECRET", ""),
		CheckoutBaseURL:    getEnv("CHECKOUT_BASE_URL", "https://api.razorpay.com"),
		CheckoutScriptURL:  getEnv("CHECKOUT_SCRIPT_URL", "https://checkout.razorpay.com/v1/checkout.js"),
		CheckoutCurrency:   getEnv("CHECKOUT_CURRENCY", "INR"),
		DisplayName:        getEnv("CHECKOUT_DISPLAY_NAME", "Mohana Mantra"),
		DisplayDescription: getEnv("CHECKOUT_DISPLAY_DESCRIPTION", "MOHANA MANTRA 2K24 (OUT-HOUSE)"),
		ThemeColor:         getEnv("CHECKOUT_THEME_COLOR", "#528FF0"),

		// Ticketing
		TicketPrice:        getEnvAsInt("TICKET_PRICE", 500),
		PostPurchasePath:   getEnv("POST_PURCHASE_PATH", "/account"),
		PendingCheckoutTTL: getEnvAsDuration("PENDING_CHECKOUT_TTL", "10m"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Ops
		OpsTokenHash: getEnv("OPS_TOKEN_HASH", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
