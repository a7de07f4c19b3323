package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Network        string
	HostIP         string
	PostgresName   string
	MongoName      string
	EvtdName       string
	EvtwdName      string
	SnapshotBucket string
	SymbolBucket   string
	AWSRegion      string
	AWSKey         string
	AWSSecret      string
}

// Load loads configuration from environment variables
// Automatically loads .env file if present
func Load() *Config {
	// Try to load .env file (fail silently if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Network:        getEnv("EVTOPS_NETWORK", "evt-net"),
		HostIP:         getEnv("EVTOPS_HOST", "127.0.0.1"),
		PostgresName:   getEnv("EVTOPS_POSTGRES_NAME", "pg"),
		MongoName:      getEnv("EVTOPS_MONGO_NAME", "mongo"),
		EvtdName:       getEnv("EVTOPS_EVTD_NAME", "evtd"),
		EvtwdName:      getEnv("EVTOPS_EVTWD_NAME", "evtwd"),
		SnapshotBucket: getEnv("EVTOPS_SNAPSHOT_BUCKET", "evt-snapshots"),
		SymbolBucket:   getEnv("EVTOPS_SYMBOL_BUCKET", "evt-symbols"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSKey:         getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecret:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
