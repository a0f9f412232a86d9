package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config carries every knob the server reads at startup. Optional
// integrations (object storage, search, events) are off when their
// fields are empty.
type Config struct {
	Port     string
	LogLevel string

	MongoURI string
	DBName   string

	AWSBucket string
	AWSRegion string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	KafkaBrokers string
	KafkaTopic   string
}

// Load reads .env when present and resolves the configuration from the
// environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file loaded")
	}
	return Config{
		Port:     GetEnv("PORT", "5000"),
		LogLevel: GetEnv("LOG_LEVEL", "info"),

		MongoURI: GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:   GetEnv("DB_NAME", "skewcube"),

		AWSBucket: GetEnv("AWS_BUCKET_NAME", ""),
		AWSRegion: GetEnv("AWS_REGION", "us-east-1"),

		ESURL:      GetEnv("ES_URL", ""),
		ESUser:     GetEnv("ES_USER", ""),
		ESPassword: GetEnv("ES_PASSWORD", ""),
		ESIndex:    GetEnv("ES_INDEX", "products"),

		KafkaBrokers: GetEnv("KAFKA_BROKERS", ""),
		KafkaTopic:   GetEnv("KAFKA_TOPIC", "shop_events"),
	}
}

// GetEnv retrieves an environment variable with a fallback. Secrets that
// must be re-read per call (JWT signing) go through this directly.
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
