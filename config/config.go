package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL    string        `yaml:"database_url"`
	JWTSecret      string        `yaml:"jwt_secret"`
	JWTExpiration  time.Duration `yaml:"jwt_expiration"`
	ServerPort     string        `yaml:"server_port"`
	LoginRateLimit int           `yaml:"login_rate_limit"` // attempts per minute per client IP
	LoginBurst     int           `yaml:"login_burst"`
	Verbose        bool          `yaml:"verbose"`
}

// Load reads the optional YAML file named by TWINTRACK_CONFIG, then lets
// environment variables override it.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("TWINTRACK_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)

	if v := os.Getenv("JWT_EXPIRATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse JWT_EXPIRATION: %w", err)
		}
		cfg.JWTExpiration = d
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse LOGIN_RATE_LIMIT: %w", err)
		}
		cfg.LoginRateLimit = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		DatabaseURL:    "postgresql://postgres@localhost:5432/twintrack",
		JWTSecret:      "your-super-secret-key-change-in-production",
		JWTExpiration:  24 * time.Hour,
		ServerPort:     "8080",
		LoginRateLimit: 10,
		LoginBurst:     5,
	}
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.JWTExpiration <= 0 {
		return fmt.Errorf("jwt_expiration must be positive")
	}
	if c.LoginRateLimit <= 0 || c.LoginBurst <= 0 {
		return fmt.Errorf("login rate limit and burst must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
