package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers []string
	KafkaGroupID string

	// PK-DB clinical API
	PKDBBaseURL      string
	PKDBPageDelay    time.Duration
	PKDBMaxPages     int
	PKDBTokenURL     string
	PKDBClientID     string
	PKDBClientSecret string

	// TDC benchmark repository
	TDCBaseURL        string
	TDCRequestTimeout time.Duration

	// Attribute catalog
	AttributeCatalogPath string

	// Feature Store
	FeatureStoreCacheTTL time.Duration

	// Pipeline
	PipelineEventsTopic string
	PipelineDLQTopic    string
	PipelineRunTimeout  time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "pharmkit"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "pharmkit123"),
		PostgresDB:       getEnv("POSTGRES_DB", "pharmkit"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "pharmkit-platform"),

		PKDBBaseURL:      getEnv("PKDB_BASE_URL", "https://pk-db.com/api/v1"),
		PKDBPageDelay:    getDuration("PKDB_PAGE_DELAY", 300*time.Millisecond),
		PKDBMaxPages:     getIntEnv("PKDB_MAX_PAGES", 0),
		PKDBTokenURL:     getEnv("PKDB_TOKEN_URL", ""),
		PKDBClientID:     getEnv("PKDB_CLIENT_ID", ""),
		PKDBClientSecret: getEnv("PKDB_CLIENT_SECRET", ""),

		TDCBaseURL:        getEnv("TDC_BASE_URL", "https://dataverse.harvard.edu/api/access/datafile"),
		TDCRequestTimeout: getDuration("TDC_REQUEST_TIMEOUT", 30*time.Second),

		AttributeCatalogPath: getEnv("ATTRIBUTE_CATALOG_PATH", ""),

		FeatureStoreCacheTTL: getDuration("FEATURE_STORE_CACHE_TTL", 5*time.Minute),

		PipelineEventsTopic: getEnv("PIPELINE_EVENTS_TOPIC", "pipeline-events"),
		PipelineDLQTopic:    getEnv("PIPELINE_DLQ_TOPIC", "pipeline-events-dlq"),
		PipelineRunTimeout:  getDuration("PIPELINE_RUN_TIMEOUT", 2*time.Hour),
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
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
