package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	PostgresDSN     string
	Redis           RedisConfig
	Kafka           KafkaConfig
	JWTSigningKey   string
	NotifyFanoutCap int
	SweepInterval   time.Duration
}

// RedisConfig controls the optional directory cache. Empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig controls the notification outbox publisher. Empty broker list
// disables publishing; outbox rows then accumulate until a publisher runs.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() Server {
	cfg := Server{
		Addr:            envOr("CHANCERY_ADDR", ":8080"),
		LogLevel:        envOr("CHANCERY_LOG_LEVEL", "info"),
		PostgresDSN:     os.Getenv("CHANCERY_POSTGRES_DSN"),
		JWTSigningKey:   os.Getenv("CHANCERY_JWT_SIGNING_KEY"),
		NotifyFanoutCap: envIntOr("CHANCERY_NOTIFY_FANOUT_CAP", 100),
		SweepInterval:   envDurationOr("CHANCERY_SWEEP_INTERVAL", time.Hour),
		Redis: RedisConfig{
			URL:          os.Getenv("CHANCERY_REDIS_URL"),
			PoolSize:     envIntOr("CHANCERY_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("CHANCERY_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("CHANCERY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("CHANCERY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("CHANCERY_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic: envOr("CHANCERY_KAFKA_TOPIC", "chancery.notifications"),
		},
	}
	if brokers := os.Getenv("CHANCERY_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if cfg.JWTSigningKey == "" {
		// Development default; must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
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
