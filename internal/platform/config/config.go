package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pstrings "finflow/pkg/platform/strings"
)

// Config captures process-level configuration for the workflow service.
type Config struct {
	Addr string

	// PostgresDSN selects the Postgres-backed stores when non-empty;
	// otherwise the in-memory stores are wired.
	PostgresDSN string

	Redis    RedisConfig
	CacheTTL time.Duration

	// Notifier selects the notification sink: "log", "ses" or "kafka".
	Notifier string
	Kafka    KafkaConfig
	SES      SESConfig
}

// RedisConfig configures the cache-backing Redis client.
type RedisConfig struct {
	// URL enables the Redis cache when non-empty (redis://host:port/db).
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the notification event publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// SESConfig configures the email notification sink.
type SESConfig struct {
	Region string
	Sender string
}

// FromEnv builds a Config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:        envOr("FINFLOW_ADDR", ":8080"),
		PostgresDSN: os.Getenv("FINFLOW_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("FINFLOW_REDIS_URL"),
			PoolSize:     envIntOr("FINFLOW_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("FINFLOW_REDIS_MIN_IDLE", 5),
			DialTimeout:  envDurationOr("FINFLOW_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("FINFLOW_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("FINFLOW_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		CacheTTL: envDurationOr("FINFLOW_CACHE_TTL", 5*time.Minute),
		Notifier: envOr("FINFLOW_NOTIFIER", "log"),
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("FINFLOW_KAFKA_BROKERS")),
			Topic:   envOr("FINFLOW_KAFKA_TOPIC", "finflow.notifications"),
		},
		SES: SESConfig{
			Region: envOr("FINFLOW_SES_REGION", "us-east-1"),
			Sender: os.Getenv("FINFLOW_SES_SENDER"),
		},
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

func envDurationOr(key string, fallback time.Duration) time.Duration {
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

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(s, ","))
}
