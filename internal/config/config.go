// Package config loads the object denormalizer's settings from the environment.
//
// Values are read once at startup, after godotenv has merged any .env file
// into the process environment. Load never fails: unparsable numbers fall
// back to their defaults and Validate reports anything that is still wrong.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/brokers/kafka"
	"object-denormalizer/internal/brokers/rabbitmq"
	"object-denormalizer/internal/brokers/redis"
	"object-denormalizer/internal/cache/stores"
	redisstore "object-denormalizer/internal/cache/stores/redis"
	"object-denormalizer/internal/cache/stores/sqlstore"
	"object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/common/validation"
	"object-denormalizer/internal/denormalization"
)

// Config holds all application configuration
type Config struct {
	LogLevel string // debug, info, warn, error
	LogFile  string // empty logs to stdout
	HTTPPort string `validate:"required,numeric"`

	BrokerType   string `validate:"broker_type"`
	KafkaBrokers []string
	KafkaGroupID string
	RabbitMQURL  string

	RedisAddress  string
	RedisPassword string
	RedisDB       int `validate:"min=0,max=15"`
	RedisPoolSize int `validate:"min=1"`

	InputTopic           string `validate:"required"`
	OutputSuccessTopic   string `validate:"required"`
	OutputFailedTopic    string `validate:"required"`
	OutputMalformedTopic string `validate:"required"`

	CacheStore      string `validate:"store_type"`
	CacheKeyPrefix  string
	ContentCacheTTL time.Duration `validate:"positive_duration"`

	DatabasePath     string // SQLite file for CACHE_STORE=sqlite
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	SearchServiceEndpoint string        `validate:"required,url"`
	SearchServiceTimeout  time.Duration `validate:"positive_duration"`
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		BrokerType:   strings.ToLower(getEnv("BROKER_TYPE", "kafka")),
		KafkaBrokers: getListEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "object-denormalizer-group"),
		RabbitMQURL:  getEnv("RABBITMQ_URL", ""),

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPoolSize: getIntEnv("REDIS_POOL_SIZE", 10),

		InputTopic:           getEnv("INPUT_TOPIC", "telemetry.raw"),
		OutputSuccessTopic:   getEnv("OUTPUT_SUCCESS_TOPIC", "telemetry.denorm"),
		OutputFailedTopic:    getEnv("OUTPUT_FAILED_TOPIC", "telemetry.failed"),
		OutputMalformedTopic: getEnv("OUTPUT_MALFORMED_TOPIC", "telemetry.malformed"),

		CacheStore:      strings.ToLower(getEnv("CACHE_STORE", "memory")),
		CacheKeyPrefix:  getEnv("CACHE_KEY_PREFIX", ""),
		ContentCacheTTL: time.Duration(getIntEnv("CONTENT_CACHE_TTL_MS", 300000)) * time.Millisecond,

		DatabasePath:     getEnv("DATABASE_PATH", "./object_denormalizer.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getIntEnv("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "object_denormalizer"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		SearchServiceEndpoint: getEnv("SEARCH_SERVICE_ENDPOINT", ""),
		SearchServiceTimeout:  getDurationEnv("SEARCH_SERVICE_TIMEOUT", 5*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blank items
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

// Validate checks the struct tags, then the settings that only matter for
// the selected broker and cache store.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if port, _ := strconv.Atoi(c.HTTPPort); port < 1 || port > 65535 {
		return errors.ConfigError("HTTP_PORT must be a valid port number between 1 and 65535")
	}

	switch c.BrokerType {
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return errors.ConfigError("KAFKA_BROKERS is required when BROKER_TYPE is kafka")
		}
	case "rabbitmq":
		if c.RabbitMQURL == "" {
			return errors.ConfigError("RABBITMQ_URL is required when BROKER_TYPE is rabbitmq")
		}
	case "redis":
		if c.RedisAddress == "" {
			return errors.ConfigError("REDIS_ADDRESS is required when BROKER_TYPE is redis")
		}
	}

	switch stores.Type(c.CacheStore) {
	case stores.TypeRedis:
		if c.RedisAddress == "" {
			return errors.ConfigError("REDIS_ADDRESS is required when CACHE_STORE is redis")
		}
	case stores.TypeSQLite:
		if c.DatabasePath == "" {
			return errors.ConfigError("DATABASE_PATH is required when CACHE_STORE is sqlite")
		}
	case stores.TypePostgres:
		if c.PostgresHost == "" || c.PostgresDB == "" || c.PostgresUser == "" {
			return errors.ConfigError("POSTGRES_HOST, POSTGRES_DB and POSTGRES_USER are required when CACHE_STORE is postgres")
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return errors.ConfigError("POSTGRES_PORT must be a valid port number")
		}
	}

	if c.InputTopic == c.OutputSuccessTopic || c.InputTopic == c.OutputFailedTopic || c.InputTopic == c.OutputMalformedTopic {
		return errors.ConfigError(fmt.Sprintf("INPUT_TOPIC %q must differ from the output topics", c.InputTopic))
	}

	return nil
}

// StoreConfig returns the cache store settings
func (c *Config) StoreConfig() stores.Config {
	return stores.Config{
		Type: stores.Type(c.CacheStore),
		Redis: redisstore.Config{
			Address:  c.RedisAddress,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			PoolSize: c.RedisPoolSize,
		},
		SQLite: sqlstore.SQLiteConfig{DatabasePath: c.DatabasePath},
		Postgres: sqlstore.PostgresConfig{
			Host:     c.PostgresHost,
			Port:     c.PostgresPort,
			Database: c.PostgresDB,
			Username: c.PostgresUser,
			Password: c.PostgresPassword,
			SSLMode:  c.PostgresSSLMode,
		},
	}
}

// BrokerConfig returns the settings for the selected broker type
func (c *Config) BrokerConfig() (brokers.BrokerConfig, error) {
	switch c.BrokerType {
	case "kafka":
		cfg := kafka.DefaultConfig()
		cfg.Brokers = c.KafkaBrokers
		cfg.GroupID = c.KafkaGroupID
		return cfg, nil

	case "rabbitmq":
		return &rabbitmq.Config{URL: c.RabbitMQURL}, nil

	case "redis":
		cfg := redis.DefaultConfig()
		cfg.Address = c.RedisAddress
		cfg.Password = c.RedisPassword
		cfg.DB = c.RedisDB
		cfg.PoolSize = c.RedisPoolSize
		return cfg, nil

	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported broker type: %s", c.BrokerType))
	}
}

// Topics returns the sink's output topics
func (c *Config) Topics() denormalization.Topics {
	return denormalization.Topics{
		Success:   c.OutputSuccessTopic,
		Failed:    c.OutputFailedTopic,
		Malformed: c.OutputMalformedTopic,
	}
}
