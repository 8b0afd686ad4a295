package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the relay configuration
type Config struct {
	Server    ServerConfig
	Relay     RelayConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

// TLSEnabled reports whether both certificate files are configured
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

type RelayConfig struct {
	// UpstreamTimeout of zero leaves the transport defaults in place
	UpstreamTimeout time.Duration
	MaxBodyBytes    int64
}

type CORSConfig struct {
	AllowedOrigin string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Enabled reports whether the relay should throttle requests
func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerSecond > 0
}

type LoggingConfig struct {
	Level  string
	Format string
}

// ClientConfig configures the routewarden CLI session
type ClientConfig struct {
	RelayURL     string
	RelayTimeout time.Duration
	DatabasePath string
	UserID       string
	UserEmail    string
	Breaker      BreakerConfig
	Logging      LoggingConfig
}

// BreakerConfig tunes the circuit breakers around the relay and the record store
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// Load loads the relay configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvWithDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvWithDefault("SERVER_PORT", getEnvWithDefault("PORT", "5000")),
			ReadTimeout:  getDurationFromEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationFromEnv("SERVER_WRITE_TIMEOUT", 0),
			TLSCertFile:  getEnvWithDefault("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnvWithDefault("TLS_KEY_FILE", ""),
		},
		Relay: RelayConfig{
			UpstreamTimeout: getDurationFromEnv("RELAY_UPSTREAM_TIMEOUT", 0),
			MaxBodyBytes:    int64(getIntFromEnv("RELAY_MAX_BODY_BYTES", 10*1024*1024)),
		},
		CORS: CORSConfig{
			AllowedOrigin: getEnvWithDefault("CORS_ALLOWED_ORIGIN", "*"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getFloatFromEnv("RELAY_RATE_LIMIT", 0),
			Burst:             getIntFromEnv("RELAY_RATE_BURST", 20),
		},
		Logging: loadLogging(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no sensible fallback
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid SERVER_PORT %q: %w", c.Server.Port, err)
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if c.Relay.MaxBodyBytes <= 0 {
		return fmt.Errorf("RELAY_MAX_BODY_BYTES must be positive")
	}
	if c.RateLimit.Enabled() && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RELAY_RATE_BURST must be positive when RELAY_RATE_LIMIT is set")
	}
	return nil
}

// LoadClient loads the CLI configuration from environment variables
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		RelayURL:     strings.TrimRight(getEnvWithDefault("ROUTEWARDEN_RELAY_URL", "http://localhost:5000"), "/"),
		RelayTimeout: getDurationFromEnv("ROUTEWARDEN_RELAY_TIMEOUT", 0),
		DatabasePath: getEnvWithDefault("ROUTEWARDEN_DB", "routewarden.db"),
		UserID:       getEnvWithDefault("ROUTEWARDEN_USER_ID", ""),
		UserEmail:    getEnvWithDefault("ROUTEWARDEN_USER_EMAIL", ""),
		Breaker: BreakerConfig{
			MaxRequests:         uint32(getIntFromEnv("ROUTEWARDEN_BREAKER_MAX_REQUESTS", 3)),
			Interval:            getDurationFromEnv("ROUTEWARDEN_BREAKER_INTERVAL", 30*time.Second),
			Timeout:             getDurationFromEnv("ROUTEWARDEN_BREAKER_TIMEOUT", 60*time.Second),
			ConsecutiveFailures: uint32(getIntFromEnv("ROUTEWARDEN_BREAKER_FAILURES", 5)),
		},
		// The CLI prints results on stdout, so logs default to quiet console lines on stderr
		Logging: LoggingConfig{
			Level:  getEnvWithDefault("LOG_LEVEL", "warn"),
			Format: getEnvWithDefault("LOG_FORMAT", "console"),
		},
	}

	if cfg.RelayURL == "" {
		return nil, fmt.Errorf("ROUTEWARDEN_RELAY_URL must not be empty")
	}
	return cfg, nil
}

func loadLogging() LoggingConfig {
	return LoggingConfig{
		Level:  getEnvWithDefault("LOG_LEVEL", "info"),
		Format: getEnvWithDefault("LOG_FORMAT", "json"),
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntFromEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatFromEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationFromEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
