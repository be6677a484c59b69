package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogJSON  bool
	LogDebug bool

	AdzunaBaseURL  string
	AdzunaAppID    string
	AdzunaAppKey   string
	AdzunaCountry  string
	AdzunaPageSize int
	AdzunaTimeout  time.Duration

	// Page walk policy.
	PageDelay         time.Duration
	RateLimitCooldown time.Duration
	CacheTTL          time.Duration

	IngestSchedule    string
	IngestTitles      []string
	IngestLocation    string
	IngestRadius      int
	IngestPagesPerRun int
	IngestWorkers     int

	SeedTitle    string
	SeedLocation string
	SeedRadius   int
	SeedMaxPage  int

	DatabaseURL      string
	DatabaseMaxConns int
	// SQLitePath selects the embedded job store when DatabaseURL is empty.
	SQLitePath string

	NATSURL         string
	NATSConnTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTelCollectorURL string
}

func LoadConfig() (*Config, error) {
	config := &Config{
		LogJSON:  getEnvBool("LOG_JSON", false),
		LogDebug: getEnvBool("LOG_DEBUG", false),

		AdzunaBaseURL:  getEnvString("ADZUNA_BASE_URL", "https://api.adzuna.com/v1/api/jobs"),
		AdzunaAppID:    getEnvString("ADZUNA_APP_ID", ""),
		AdzunaAppKey:   getEnvString("ADZUNA_APP_KEY", ""),
		AdzunaCountry:  getEnvString("ADZUNA_COUNTRY", "us"),
		AdzunaPageSize: getEnvInt("ADZUNA_PAGE_SIZE", 50),
		AdzunaTimeout:  getEnvDuration("ADZUNA_TIMEOUT", 15*time.Second),

		PageDelay:         getEnvDuration("PAGE_DELAY", 300*time.Millisecond),
		RateLimitCooldown: getEnvDuration("RATE_LIMIT_COOLDOWN", 10*time.Second),
		CacheTTL:          getEnvDuration("CACHE_TTL", 15*time.Minute),

		IngestSchedule:    getEnvString("INGEST_SCHEDULE", "@every 6h"),
		IngestTitles:      getEnvList("INGEST_TITLES", []string{"Software Engineer"}),
		IngestLocation:    getEnvString("INGEST_LOCATION", "United States"),
		IngestRadius:      getEnvInt("INGEST_RADIUS", 25),
		IngestPagesPerRun: getEnvInt("INGEST_PAGES_PER_RUN", 5),
		IngestWorkers:     getEnvInt("INGEST_WORKERS", 3),

		SeedTitle:    getEnvString("SEED_TITLE", "Full Stack Engineer"),
		SeedLocation: getEnvString("SEED_LOCATION", "United States"),
		SeedRadius:   getEnvInt("SEED_RADIUS", 25),
		SeedMaxPage:  getEnvInt("SEED_MAX_PAGE", 1500),

		DatabaseURL:      getEnvString("DATABASE_URL", ""),
		DatabaseMaxConns: getEnvInt("DATABASE_MAX_CONNS", 10),
		SQLitePath:       getEnvString("SQLITE_PATH", "jobs.db"),

		NATSURL:         getEnvString("NATS_URL", "nats://localhost:4222"),
		NATSConnTimeout: getEnvDuration("NATS_CONN_TIMEOUT", 10*time.Second),

		RedisAddr:     getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTelCollectorURL: getEnvString("OTEL_COLLECTOR_URL", ""),
	}

	return config, nil
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
