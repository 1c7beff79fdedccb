package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr       string
	AdminToken string

	// FetchTimeout bounds every per-module summary fetch during aggregation.
	FetchTimeout time.Duration

	// LowStockThreshold marks parts with a smaller quantity as low stock.
	LowStockThreshold int

	// SeedDemoData creates a demo tenant with sample records at startup.
	SeedDemoData bool

	Kafka KafkaConfig
	Redis RedisConfig
}

// KafkaConfig holds the domain event transport settings. Empty brokers
// disable Kafka; domain events are then delivered in-process.
type KafkaConfig struct {
	Brokers string
	GroupID string
	Topic   string
}

// RedisConfig holds the snapshot cache settings. An empty URL disables the cache.
type RedisConfig struct {
	URL string
	TTL time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("REPAIRRADAR_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		// Use a default for development - should be overridden in production
		adminToken = "dev-admin-token-change-in-production"
	}

	fetchTimeout := 3 * time.Second
	if s := os.Getenv("DASHBOARD_FETCH_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			fetchTimeout = d
		}
	}

	lowStock := 10
	if s := os.Getenv("LOW_STOCK_THRESHOLD"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			lowStock = n
		}
	}

	cacheTTL := 5 * time.Minute
	if s := os.Getenv("SNAPSHOT_CACHE_TTL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cacheTTL = d
		}
	}

	groupID := os.Getenv("KAFKA_GROUP_ID")
	if groupID == "" {
		groupID = "repairradar-dashboard"
	}
	topic := os.Getenv("KAFKA_DOMAIN_EVENTS_TOPIC")
	if topic == "" {
		topic = "repairradar.domain-events"
	}

	return Server{
		Addr:              addr,
		AdminToken:        adminToken,
		FetchTimeout:      fetchTimeout,
		LowStockThreshold: lowStock,
		SeedDemoData:      os.Getenv("SEED_DEMO_DATA") == "true",
		Kafka: KafkaConfig{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			GroupID: groupID,
			Topic:   topic,
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
			TTL: cacheTTL,
		},
	}
}
