package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type MongoConfig struct {
	URI               string        `env:"MONGODB_URI"`
	Password          string        `env:"MONGODB_PASSWORD"`
	Database          string        `env:"MONGODB_DATABASE" envDefault:"comments_db"`
	Collection        string        `env:"MONGODB_COLLECTION" envDefault:"comments"`
	ConnectTimeout    time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"5s"`
	ReconnectAttempts int           `env:"MONGODB_RECONNECT_ATTEMPTS" envDefault:"2"`
	ReconnectDelay    time.Duration `env:"MONGODB_RECONNECT_DELAY" envDefault:"10s"`
	ReconnectCooldown time.Duration `env:"MONGODB_RECONNECT_COOLDOWN" envDefault:"10s"`
}

// ReconnectBudget is the worst case for one full reconnect cycle.
func (m MongoConfig) ReconnectBudget() time.Duration {
	return time.Duration(max(m.ReconnectAttempts, 1)) * (m.ConnectTimeout + m.ReconnectDelay)
}

// UsesMemory reports whether reviews should be kept in process memory
// instead of MongoDB (local development only).
func (m MongoConfig) UsesMemory() bool {
	return strings.HasPrefix(m.URI, "memory://")
}

type ReviewsConfig struct {
	RequirePhone bool          `env:"REVIEWS_REQUIRE_PHONE" envDefault:"true"`
	AllowDelete  bool          `env:"REVIEWS_ALLOW_DELETE" envDefault:"true"`
	ReadTimeout  time.Duration `env:"REVIEWS_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"REVIEWS_WRITE_TIMEOUT" envDefault:"20s"`
}

type AdminConfig struct {
	JWTSecret string `env:"ADMIN_JWT_SECRET"`
	JWKSURL   string `env:"ADMIN_JWKS_URL"`
}

// Enabled reports whether any admin token verifier is configured.
func (a AdminConfig) Enabled() bool {
	return a.JWTSecret != "" || a.JWKSURL != ""
}

type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"sushiyummy-reviews"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:"1.0"`
}

type Config struct {
	Port        string `env:"PORT" envDefault:"3001"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	APIBasePath string `env:"API_BASE_PATH" envDefault:"/api"`

	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:3001,http://127.0.0.1:3000,http://127.0.0.1:3001,https://sushiyummy.onrender.com"`

	RateRPS   float64 `env:"RATE_RPS" envDefault:"1"`
	RateBurst int     `env:"RATE_BURST" envDefault:"5"`

	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"30s"`

	Mongo   MongoConfig
	Reviews ReviewsConfig
	Admin   AdminConfig
	OTEL    OTELConfig
}

// LoadConfig reads .env.local / .env when present, then the process
// environment, and validates the result.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	c.APIBasePath = normalizeBasePath(c.APIBasePath)
	if c.Mongo.Password != "" {
		c.Mongo.URI = strings.Replace(c.Mongo.URI, "<password>", c.Mongo.Password, 1)
	}
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if c.Mongo.URI == "" {
		return errors.New("MONGODB_URI is required")
	}
	if c.Mongo.ReconnectAttempts < 1 {
		return errors.New("MONGODB_RECONNECT_ATTEMPTS must be >= 1")
	}
	if c.Mongo.ReconnectDelay < 0 || c.Mongo.ReconnectCooldown < 0 || c.Mongo.ConnectTimeout <= 0 {
		return errors.New("mongodb timeouts must be positive durations")
	}
	if c.Reviews.ReadTimeout <= 0 || c.Reviews.WriteTimeout <= 0 {
		return errors.New("REVIEWS_READ_TIMEOUT and REVIEWS_WRITE_TIMEOUT must be > 0")
	}
	// Every storage wait must end before the HTTP server drops the response.
	if c.WriteTimeout > 0 {
		if c.Reviews.ReadTimeout >= c.WriteTimeout || c.Reviews.WriteTimeout >= c.WriteTimeout {
			return fmt.Errorf("REVIEWS_READ_TIMEOUT and REVIEWS_WRITE_TIMEOUT must be below WRITE_TIMEOUT (%s)", c.WriteTimeout)
		}
		if budget := c.Mongo.ReconnectBudget(); budget > c.WriteTimeout {
			return fmt.Errorf("MONGODB_RECONNECT_ATTEMPTS x (MONGODB_CONNECT_TIMEOUT + MONGODB_RECONNECT_DELAY) = %s exceeds WRITE_TIMEOUT (%s)", budget, c.WriteTimeout)
		}
	}
	if c.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if c.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// normalizeBasePath ensures a leading '/' and strips a trailing one.
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}
