// Package config loads application configuration from environment variables
// and the booking policy file.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	StoreDriver string // "mysql" or "memory"
	AutoMigrate bool   // create tables on startup

	DBUser            string
	DBPass            string // optional
	DBHost            string
	DBPort            string
	DBName            string
	DBLockWaitTimeout time.Duration // 0 keeps the server default

	JWTSecret     string        // secret used to verify access tokens
	WebhookSecret string        // shared token of the payment provider callback

	RabbitMQURL  string // empty disables the event publisher
	OTLPEndpoint string // empty disables trace export
	ServiceName  string
	LogLevel     string
	PolicyFile   string // optional YAML file read by LoadPolicy
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The database
// variables are only required when the MySQL store is selected.
func Load() Config {
	c := Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		StoreDriver:   envStr("STORE_DRIVER", "mysql"),
		AutoMigrate:   envBool("AUTO_MIGRATE", false),
		JWTSecret:     must("JWT_SECRET"),
		WebhookSecret: must("WEBHOOK_SECRET"),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:   envStr("OTEL_SERVICE_NAME", "hotel-booking-engine"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		PolicyFile:    os.Getenv("POLICY_FILE"),
	}
	switch c.StoreDriver {
	case "memory":
	case "mysql":
		c.DBUser = must("DB_USER")
		c.DBPass = os.Getenv("DB_PASS") // empty allowed
		c.DBHost = must("DB_HOST")
		c.DBPort = strconv.Itoa(mustInt("DB_PORT"))
		c.DBName = must("DB_NAME")
		c.DBLockWaitTimeout = envDur("DB_LOCK_WAIT_TIMEOUT", 0)
	default:
		log.Fatalf("invalid STORE_DRIVER %q (want mysql or memory)", c.StoreDriver)
	}
	return c
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
