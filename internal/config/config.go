package config

import (
	"os"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (change feed + idempotency keys)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret string
	JWTExpiry time.Duration

	// The email that gets the SUPER_ADMIN role on signup
	SuperAdminEmail string

	// Payment gateway
	StripeSecretKey  string
	StripeSigningKey string
	StripeAPIURL     string
	WebhookTolerance time.Duration

	// Search index
	SearchAppID  string
	SearchAPIKey string
	SearchAPIURL string

	// Shipping gateway
	ShipAPIKey    string
	ShipAPISecret string
	ShipAPIURL    string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "storefront"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       0,

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: parseDuration(getEnv("JWT_EXPIRY", "24h"), 24*time.Hour),

		SuperAdminEmail: getEnv("SUPER_ADMIN_EMAIL", ""),

		StripeSecretKey:  getEnv("STRIPE_SECRET_KEY", ""),
		StripeSigningKey: getEnv("STRIPE_SIGNING_KEY", ""),
		StripeAPIURL:     getEnv("STRIPE_API_URL", "https://api.stripe.com"),
		WebhookTolerance: parseDuration(getEnv("WEBHOOK_TOLERANCE", "5m"), 5*time.Minute),

		SearchAppID:  getEnv("SEARCH_APP_ID", ""),
		SearchAPIKey: getEnv("SEARCH_ADMIN_API_KEY", ""),
		SearchAPIURL: getEnv("SEARCH_API_URL", ""),

		ShipAPIKey:    getEnv("SHIPSTATION_API_KEY", ""),
		ShipAPISecret: getEnv("SHIPSTATION_API_SECRET", ""),
		ShipAPIURL:    getEnv("SHIPSTATION_API_URL", "https://ssapi.shipstation.com"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
