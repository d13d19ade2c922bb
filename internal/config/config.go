package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
	Topics  []string `yaml:"topics"`
}

// DispatcherConfig bounds the retry policy applied uniformly to every topic
// handler when the store is unavailable.
type DispatcherConfig struct {
	MaxAttempts     int `yaml:"max_attempts"`
	RetryBackoffMs  int `yaml:"retry_backoff_ms"`
	HealthCheckPort int `yaml:"health_check_port"`
}

// RetryBackoff returns the configured backoff as a duration.
func (c DispatcherConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// override DSN password from env if present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	if cfg.Dispatcher.MaxAttempts <= 0 {
		cfg.Dispatcher.MaxAttempts = 3
	}
	if cfg.Dispatcher.RetryBackoffMs <= 0 {
		cfg.Dispatcher.RetryBackoffMs = 200
	}
	if cfg.Dispatcher.HealthCheckPort == 0 {
		cfg.Dispatcher.HealthCheckPort = 8081
	}
	return &cfg, nil
}
