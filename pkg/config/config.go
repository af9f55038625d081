package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Upstream  UpstreamConfig
	API       APIConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	SSLMode  string `validate:"oneof=disable require verify-ca verify-full"`
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr      string `validate:"required"`
	Password  string
	DB        int           `validate:"min=0"`
	ResultTTL time.Duration `validate:"min=0"`
	LockTTL   time.Duration `validate:"min=0"`
}

type KafkaConfig struct {
	Brokers        []string `validate:"min=1,dive,required"`
	TopicSnapshots string   `validate:"required"`
	TopicRecompute string   `validate:"required"`
	NumPartitions  int      `validate:"min=1"`
	ConsumerGroup  string   `validate:"required"`
	BatchSize      int      `validate:"min=1"`
	FlushInterval  time.Duration
}

// UpstreamConfig points at the hosted REST backend. An empty BaseURL means
// metrics are read straight from Postgres.
type UpstreamConfig struct {
	BaseURL string `validate:"omitempty,url"`
	APIKey  string
	Timeout time.Duration
}

type APIConfig struct {
	Port    int    `validate:"min=1,max=65535"`
	GinMode string `validate:"oneof=debug release test"`
}

type SchedulerConfig struct {
	RunTime      string `validate:"required"`
	Weekly       bool
	Monthly      bool
	StoreIDs     []string
	FetchTimeout time.Duration
	Workers      int `validate:"min=1"`
}

type LogConfig struct {
	Level  string `validate:"oneof=trace debug info warn error fatal"`
	Format string `validate:"oneof=json text"`
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "growth_user"),
			Password: getEnv("DB_PASSWORD", "growth_pass"),
			DBName:   getEnv("DB_NAME", "growth_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			ResultTTL: getEnvAsDuration("REDIS_RESULT_TTL", 15*time.Minute),
			LockTTL:   getEnvAsDuration("REDIS_LOCK_TTL", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:        getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicSnapshots: getEnv("KAFKA_TOPIC_SNAPSHOTS", "growth.index.snapshots"),
			TopicRecompute: getEnv("KAFKA_TOPIC_RECOMPUTE", "growth.index.recompute"),
			NumPartitions:  getEnvAsInt("KAFKA_NUM_PARTITIONS", 6),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "recompute-group"),
			BatchSize:      getEnvAsInt("KAFKA_BATCH_SIZE", 50),
			FlushInterval:  getEnvAsDuration("KAFKA_FLUSH_INTERVAL", 5*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL: getEnv("UPSTREAM_BASE_URL", ""),
			APIKey:  getEnv("UPSTREAM_API_KEY", ""),
			Timeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		},
		API: APIConfig{
			Port:    getEnvAsInt("API_PORT", 8080),
			GinMode: getEnv("GIN_MODE", "release"),
		},
		Scheduler: SchedulerConfig{
			RunTime:      getEnv("SNAPSHOT_RUN_TIME", "02:00"),
			Weekly:       getEnvAsBool("SNAPSHOT_WEEKLY", true),
			Monthly:      getEnvAsBool("SNAPSHOT_MONTHLY", true),
			StoreIDs:     getEnvAsList("SNAPSHOT_STORE_IDS", nil),
			FetchTimeout: getEnvAsDuration("SNAPSHOT_FETCH_TIMEOUT", 2*time.Minute),
			Workers:      getEnvAsInt("SNAPSHOT_WORKERS", 2),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks struct tags and the HH:MM run time.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, _, err := ParseTimeOfDay(cfg.Scheduler.RunTime); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid time format: %s (expected HH:MM)", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day out of range: %s", s)
	}
	return hour, minute, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
