package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	JWTSecret    string
	JWTExpiresIn time.Duration
	MongoURI     string
	DBName       string
	DBMaxRetries int
	DBRetryDelay time.Duration
	SkipAuth     bool
	Environment  string
	AppId        string
	LogToDB      bool
	CORSOrigins  string
	QueryTimeout time.Duration

	LoginRateLimit  int
	LoginRateWindow time.Duration

	MaintenanceSchedule string
	StudentInactiveDays int
	LogRetentionDays    int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:         getEnv("PORT", "8000"),
		JWTSecret:    getEnv("JWT_SECRET", "secret"),
		JWTExpiresIn: getDuration("JWT_EXPIRES_IN", 72*time.Hour),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:       getEnv("MONGO_DBNAME", "tafe-weather-api"),
		DBMaxRetries: getInt("DB_MAX_RETRIES", 5),
		DBRetryDelay: time.Duration(getInt("DB_RETRY_DELAY_MS", 2000)) * time.Millisecond,
		SkipAuth:     getEnv("SKIP_AUTH", "false") == "true",
		Environment:  getEnv("ENVIRONMENT", "development"),
		AppId:        getEnv("APP_ID", "tafe-weather-api"),
		LogToDB:      getEnv("LOG_TO_DB", "true") == "true",
		CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000, http://localhost:5173, http://localhost:8000"),
		QueryTimeout: getDuration("QUERY_TIMEOUT", 15*time.Second),

		LoginRateLimit:  getInt("LOGIN_RATE_LIMIT", 5),
		LoginRateWindow: getDuration("LOGIN_RATE_WINDOW", 15*time.Minute),

		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "@daily"),
		StudentInactiveDays: getInt("STUDENT_INACTIVE_DAYS", 30),
		LogRetentionDays:    getInt("LOG_RETENTION_DAYS", 0),
	}, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return d
}
