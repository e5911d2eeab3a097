package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	GRPCPort         int
	HTTPPort         int
	APIToken         string
	DB               DBConfig
	Kafka            KafkaConfig
	LogLevel         string
	LogFormat        string
	RebuildWorkers   int
	UnrealisedPolicy string
}

// DBConfig holds database connection parameters.
// ConnStr, when set, wins over the individual fields.
type DBConfig struct {
	ConnStr  string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// KafkaConfig holds Kafka broker configuration.
// An empty Brokers list disables the consumer and the publisher.
type KafkaConfig struct {
	Brokers           []string
	TransactionsTopic string
	RebuiltTopic      string
	GroupID           string
}

// Enabled reports whether any broker is configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// DSN returns the lib/pq connection string
func (c DBConfig) DSN() string {
	if c.ConnStr != "" {
		return c.ConnStr
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		GRPCPort: getEnvInt("GRPC_PORT", 8080),
		HTTPPort: getEnvInt("HTTP_PORT", 8081),
		APIToken: getEnv("API_TOKEN", "dev-token"),
		DB: DBConfig{
			ConnStr:  os.Getenv("DB_CONN_STR"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "fxledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:           getEnvList("KAFKA_BROKERS"),
			TransactionsTopic: getEnv("KAFKA_TRANSACTIONS_TOPIC", "fxledger.transactions"),
			RebuiltTopic:      getEnv("KAFKA_REBUILT_TOPIC", "fxledger.bucket-rebuilt"),
			GroupID:           getEnv("KAFKA_GROUP_ID", "fxledger-reconciler"),
		},
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		RebuildWorkers:   getEnvInt("REBUILD_WORKERS", 4),
		UnrealisedPolicy: getEnv("UNREALISED_POLICY", "side-aware"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvList splits a comma separated value, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
