package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the agent.
type Config struct {
	Env string

	// Hedera operator credentials and network selection
	OperatorID  string
	OperatorKey string
	Network     string // "testnet", "mainnet", "previewnet"

	// Topics
	InboundTopic  string
	OutboundTopic string

	// Optional persistence
	DatabaseURL string // postgres:// uses pgx, anything else is a sqlite path
	RedisURL    string

	// Ops HTTP server
	OpsPort string

	// Router tuning
	HeartbeatInterval time.Duration // 0 disables the repeating heartbeat
	GeneratorTimeout  time.Duration

	// Default asset basket when a query names none
	DefaultAssets []string

	// Quote API base URL for the report generator
	QuoteAPIURL string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// Returns an error for missing required credentials; callers abort at
// startup, before any subscription begins.
func Load() (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Env:               getEnv("ENV", "development"),
		OperatorID:        os.Getenv("HEDERA_OPERATOR_ID"),
		OperatorKey:       os.Getenv("HEDERA_OPERATOR_KEY"),
		Network:           getEnv("HEDERA_NETWORK", "testnet"),
		InboundTopic:      os.Getenv("INBOUND_TOPIC_ID"),
		OutboundTopic:     os.Getenv("OUTBOUND_TOPIC_ID"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		OpsPort:           getEnv("OPS_PORT", "8080"),
		HeartbeatInterval: getDuration("HEARTBEAT_INTERVAL", 5*time.Minute),
		GeneratorTimeout:  getDuration("GENERATOR_TIMEOUT", 30*time.Second),
		QuoteAPIURL:       getEnv("QUOTE_API_URL", "https://api.coingecko.com/api/v3"),
	}

	// Parse default basket (comma-separated symbols)
	basket := getEnv("DEFAULT_ASSETS", "BTC,ETH,HBAR")
	for _, sym := range strings.Split(basket, ",") {
		sym = strings.TrimSpace(strings.ToUpper(sym))
		if sym != "" {
			cfg.DefaultAssets = append(cfg.DefaultAssets, sym)
		}
	}

	if cfg.OperatorID == "" {
		return nil, fmt.Errorf("HEDERA_OPERATOR_ID is required")
	}
	if cfg.OperatorKey == "" {
		return nil, fmt.Errorf("HEDERA_OPERATOR_KEY is required")
	}

	// In production, require redis for message history
	if cfg.Env == "production" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required in production")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// OperatorIdentity returns this agent's operator id on the wire:
// "<inbound-topic>@<account-id>".
func (c *Config) OperatorIdentity() string {
	return c.InboundTopic + "@" + c.OperatorID
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Accept plain seconds as well
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
