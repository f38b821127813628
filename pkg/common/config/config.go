package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	AllowedOrigins []string

	// Database
	DatabaseDriver   string
	SQLitePath       string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisEnabled    bool
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int
	FeatureCacheTTL time.Duration

	// Kafka
	KafkaEnabled   bool
	KafkaBrokers   []string
	DiagnosisTopic string
	KafkaGroupID   string
	AlertThreshold float64

	// Models
	ModelDir          string
	ONNXRuntimeLib    string
	DiabetesModel     string
	HeartDiseaseModel string
	ParkinsonsModel   string
	SchemaFile        string

	// Localization
	MessagesFile    string
	DefaultLanguage string

	// History
	HistoryDefaultLimit int
	HistoryMaxLimit     int

	// CLI client
	APIBaseURL    string
	ClientTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; variables already set win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8000"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),
		AllowedOrigins: getStringSliceEnv("ALLOWED_ORIGINS", []string{"*"}),

		DatabaseDriver:   getEnv("DATABASE_DRIVER", "sqlite"),
		SQLitePath:       getEnv("SQLITE_PATH", "meddiag.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "meddiag"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "meddiag"),
		PostgresDB:       getEnv("POSTGRES_DB", "meddiag"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisEnabled:    getBoolEnv("REDIS_ENABLED", false),
		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getIntEnv("REDIS_DB", 0),
		FeatureCacheTTL: getDuration("FEATURE_CACHE_TTL", 24*time.Hour),

		KafkaEnabled:   getBoolEnv("KAFKA_ENABLED", false),
		KafkaBrokers:   getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		DiagnosisTopic: getEnv("KAFKA_DIAGNOSIS_TOPIC", "diagnosis-events"),
		KafkaGroupID:   getEnv("KAFKA_GROUP_ID", "meddiag-watcher"),
		AlertThreshold: getFloatEnv("ALERT_THRESHOLD", 0.7),

		ModelDir:          getEnv("MODEL_DIR", "saved_models"),
		ONNXRuntimeLib:    getEnv("ONNXRUNTIME_LIB", "libonnxruntime.so"),
		DiabetesModel:     getEnv("DIABETES_MODEL", "diabetes_model"),
		HeartDiseaseModel: getEnv("HEART_DISEASE_MODEL", "heart_disease_model"),
		ParkinsonsModel:   getEnv("PARKINSONS_MODEL", "parkinsons_model"),
		SchemaFile:        getEnv("FEATURE_SCHEMA_FILE", ""),

		MessagesFile:    getEnv("MESSAGES_FILE", ""),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "es"),

		HistoryDefaultLimit: getIntEnv("HISTORY_DEFAULT_LIMIT", 50),
		HistoryMaxLimit:     getIntEnv("HISTORY_MAX_LIMIT", 500),

		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:8000"),
		ClientTimeout: getDuration("CLIENT_TIMEOUT", 15*time.Second),
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

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
