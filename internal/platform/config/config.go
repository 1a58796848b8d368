package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything main needs to wire the process.
type Config struct {
	Addr    string
	OpsAddr string

	// DatabaseURL empty means the in-memory stores (dev and unit tests).
	DatabaseURL string

	Redis RedisConfig

	JWTSigningKey string
	// AssertionKey verifies the external identity provider's assertion in the
	// dev verifier. Production deployments plug in a real verifier instead.
	AssertionKey string
	TokenTTL     time.Duration

	// StoreTimeout bounds every store round-trip; expiry surfaces as
	// Unavailable rather than a hang.
	StoreTimeout time.Duration

	// BootstrapAdminTokenHash is a bcrypt hash guarding the unauthenticated
	// bootstrap endpoint that creates the first admin user.
	BootstrapAdminTokenHash string
}

// RedisConfig holds connection settings for the token revocation list.
// An empty URL disables Redis; revocation then falls back to process memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:                    envOr("GRADEGATE_ADDR", ":8080"),
		OpsAddr:                 envOr("GRADEGATE_OPS_ADDR", ":9090"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		JWTSigningKey:           envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AssertionKey:            envOr("IDP_ASSERTION_KEY", "dev-assertion-key"),
		TokenTTL:                envDurationOr("TOKEN_TTL", time.Hour),
		StoreTimeout:            envDurationOr("STORE_TIMEOUT", 3*time.Second),
		BootstrapAdminTokenHash: os.Getenv("BOOTSTRAP_ADMIN_TOKEN_HASH"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 8),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 1),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", time.Second),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
