// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development-safe default; production
// deployments override through the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	AuthRequired  bool
}

// Authority configures the identity-authority client.
type Authority struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
}

// Otp configures challenge issuance.
type Otp struct {
	TTL         time.Duration
	MaxAttempts int
	MaxResends  int
}

// Retention configures the archival sweep.
type Retention struct {
	Window   time.Duration
	Interval time.Duration
}

// Database configures the PostgreSQL pool. An empty URL selects the
// in-memory request store.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Redis configures the challenge store. An empty URL keeps challenges in
// process memory.
type Redis struct {
	URL string
}

// Kafka configures the audit relay. Empty brokers disable the relay.
type Kafka struct {
	Brokers       []string
	AuditTopic    string
	RelayInterval time.Duration
}

// Audit configures the in-process audit pipeline.
type Audit struct {
	BufferSize int
}

// Config is the full application configuration.
type Config struct {
	Server    Server
	Authority Authority
	Otp       Otp
	Retention Retention
	Database  Database
	Redis     Redis
	Kafka     Kafka
	Audit     Audit
}

// FromEnv reads configuration from VERITY_* environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envString("VERITY_ADDR", ":8080"),
			JWTSigningKey: envString("VERITY_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			AuthRequired:  envString("VERITY_AUTH_REQUIRED", "true") == "true",
		},
		Authority: Authority{
			BaseURL:     envString("VERITY_AUTHORITY_URL", "http://localhost:9090"),
			Timeout:     envDuration("VERITY_AUTHORITY_TIMEOUT", 5*time.Second),
			MaxAttempts: envInt("VERITY_AUTHORITY_MAX_ATTEMPTS", 1),
		},
		Otp: Otp{
			TTL:         envDuration("VERITY_OTP_TTL", 5*time.Minute),
			MaxAttempts: envInt("VERITY_OTP_MAX_ATTEMPTS", 3),
			MaxResends:  envInt("VERITY_OTP_MAX_RESENDS", 3),
		},
		Retention: Retention{
			Window:   envDuration("VERITY_RETENTION_WINDOW", 90*24*time.Hour),
			Interval: envDuration("VERITY_RETENTION_INTERVAL", time.Hour),
		},
		Database: Database{
			URL:             os.Getenv("VERITY_DATABASE_URL"),
			MaxOpenConns:    envInt("VERITY_DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("VERITY_DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("VERITY_DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: Redis{
			URL: os.Getenv("VERITY_REDIS_URL"),
		},
		Kafka: Kafka{
			Brokers:       envList("VERITY_KAFKA_BROKERS"),
			AuditTopic:    envString("VERITY_KAFKA_AUDIT_TOPIC", "verity.audit"),
			RelayInterval: envDuration("VERITY_KAFKA_RELAY_INTERVAL", 2*time.Second),
		},
		Audit: Audit{
			BufferSize: envInt("VERITY_AUDIT_BUFFER", 256),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
