package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrConfigurationMissing marks a missing credential or input file.
// It is the only error class that aborts a run before any processing.
var ErrConfigurationMissing = errors.New("configuration missing")

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Provider   ProviderConfig
	Storage    StorageConfig
	Enrichment EnrichmentConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	Schedule   ScheduleConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// ProviderConfig holds market-data provider credentials and budget
type ProviderConfig struct {
	APIKey            string
	APISecret         string
	BaseURL           string
	RequestTimeout    time.Duration
	RateLimitCooldown time.Duration
}

// StorageConfig holds the file store layout
type StorageConfig struct {
	BasePath         string
	FundamentalsFile string
}

// EnrichmentConfig holds the batch and idempotence tunables
type EnrichmentConfig struct {
	EnrichedThreshold int
	LookbackDays      int
	BatchSize         int
	ItemDelay         time.Duration
	CallsPerCooldown  int
	Cooldown          time.Duration
	Workers           int
	SourceTag         string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers      []string
	EventsTopic  string
	RequestTopic string
	GroupID      string
}

// RedisConfig holds the optional bar cache configuration
type RedisConfig struct {
	Enabled bool
	Addr    string
	TTL     time.Duration
}

// DatabaseConfig holds the optional PostgreSQL indicator sink
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ScheduleConfig holds the daily pipeline cron schedule
type ScheduleConfig struct {
	Spec string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Provider: ProviderConfig{
			APIKey:            getEnv("ALPACA_API_KEY", ""),
			APISecret:         getEnv("ALPACA_SECRET_KEY", ""),
			BaseURL:           getEnv("ALPACA_DATA_URL", "https://data.alpaca.markets"),
			RequestTimeout:    getDuration("PROVIDER_TIMEOUT", 30*time.Second),
			RateLimitCooldown: getDuration("RATE_LIMIT_COOLDOWN", 60*time.Second),
		},
		Storage: StorageConfig{
			BasePath:         getEnv("DATA_BASE_PATH", "/workspaces/data"),
			FundamentalsFile: getEnv("FUNDAMENTALS_FILE", ""),
		},
		Enrichment: EnrichmentConfig{
			EnrichedThreshold: getInt("ENRICHED_THRESHOLD", 5),
			LookbackDays:      getInt("LOOKBACK_DAYS", 70),
			BatchSize:         getInt("BATCH_SIZE", 10),
			ItemDelay:         getDuration("ITEM_DELAY", 300*time.Millisecond),
			CallsPerCooldown:  getInt("CALLS_PER_COOLDOWN", 180),
			Cooldown:          getDuration("COOLDOWN", 60*time.Second),
			Workers:           getInt("LOADER_WORKERS", 5),
			SourceTag:         getEnv("TECHNICAL_SOURCE", "alpaca"),
		},
		Kafka: KafkaConfig{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			EventsTopic:  getEnv("KAFKA_EVENTS_TOPIC", "enrichment-events"),
			RequestTopic: getEnv("KAFKA_REQUEST_TOPIC", "enrichment-requests"),
			GroupID:      getEnv("KAFKA_GROUP_ID", "stock-enrichment-service"),
		},
		Redis: RedisConfig{
			Enabled: getBool("REDIS_ENABLED", false),
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			TTL:     getDuration("REDIS_BAR_TTL", 12*time.Hour),
		},
		Database: DatabaseConfig{
			Enabled:  getBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "stockenrichment"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Schedule: ScheduleConfig{
			Spec: getEnv("PIPELINE_SCHEDULE", "30 22 * * 1-5"),
		},
	}
}

// Validate checks that every required credential and input file is
// present before any processing starts.
func (c *Config) Validate() error {
	if c.Provider.APIKey == "" || c.Provider.APISecret == "" {
		return fmt.Errorf("%w: ALPACA_API_KEY and ALPACA_SECRET_KEY are required", ErrConfigurationMissing)
	}
	if c.Storage.BasePath == "" {
		return fmt.Errorf("%w: DATA_BASE_PATH is required", ErrConfigurationMissing)
	}
	if c.Storage.FundamentalsFile != "" {
		if _, err := os.Stat(c.Storage.FundamentalsFile); err != nil {
			return fmt.Errorf("%w: fundamentals file %s: %v", ErrConfigurationMissing, c.Storage.FundamentalsFile, err)
		}
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
