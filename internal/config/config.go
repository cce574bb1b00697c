package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines charging service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"CHARGING_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"CHARGING_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"CHARGING_REDIS_ADDR"`
		Password string `yaml:"password" env:"CHARGING_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"CHARGING_REDIS_DB"`
		TTL      int    `yaml:"ttlSeconds" env:"CHARGING_REDIS_TTL"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret" env:"CHARGING_JWT_SECRET"`
	} `yaml:"auth"`
	Charging struct {
		StallTimeoutSeconds  int `yaml:"stallTimeoutSeconds" env:"CHARGING_STALL_TIMEOUT"`
		SweepIntervalSeconds int `yaml:"sweepIntervalSeconds" env:"CHARGING_SWEEP_INTERVAL"`
	} `yaml:"charging"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8084"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.TTL = 86400
	cfg.Charging.StallTimeoutSeconds = 5
	cfg.Charging.SweepIntervalSeconds = 2

	if err := loadInto(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8084"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// LiveSnapshotTTL returns redis ttl as duration.
func (c *Config) LiveSnapshotTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}

// StallTimeout returns how long telemetry silence marks a session stalled.
func (c *Config) StallTimeout() time.Duration {
	if c.Charging.StallTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Charging.StallTimeoutSeconds) * time.Second
}

// SweepInterval returns how often the stall sweeper runs.
func (c *Config) SweepInterval() time.Duration {
	if c.Charging.SweepIntervalSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Charging.SweepIntervalSeconds) * time.Second
}
