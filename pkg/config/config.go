package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Port             string `yaml:"port"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
	DynamoDBRegion   string `yaml:"dynamodb_region"`
	AWSAccessKey     string `yaml:"aws_access_key"`
	AWSSecretKey     string `yaml:"aws_secret_key"`
	TrackingTable    string `yaml:"tracking_table"`
	ListShardCount   int    `yaml:"list_shard_count"`
	RetentionDays    int    `yaml:"retention_days"`
	KafkaBrokers     string `yaml:"kafka_brokers"`
	KafkaTopic       string `yaml:"kafka_topic"`
	KafkaGroupID     string `yaml:"kafka_group_id"`
	LogLevel         string `yaml:"log_level"`
}

// Load reads configuration from environment variables. When CONFIG_FILE
// points at a YAML file, values from that file override the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		DynamoDBRegion:   getEnv("DYNAMODB_REGION", "us-east-1"),
		AWSAccessKey:     getEnv("AWS_ACCESS_KEY_ID", "dummy"),
		AWSSecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", "dummy"),
		TrackingTable:    getEnv("TRACKING_TABLE_NAME", "document-tracking"),
		ListShardCount:   getEnvInt("LIST_SHARD_COUNT", 10),
		RetentionDays:    getEnvInt("DATA_RETENTION_DAYS", 30),
		KafkaBrokers:     getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "document-uploads"),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "document-tracker"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if cfg.ListShardCount < 1 {
		return nil, fmt.Errorf("list_shard_count must be positive, got %d", cfg.ListShardCount)
	}

	return cfg, nil
}

// getEnv reads an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an integer environment variable with a fallback default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
