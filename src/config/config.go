package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	RPC         RPCConfig
	Attestation AttestationConfig
	Aggregator  AggregatorConfig
	Relay       RelayConfig
}

// RPCConfig holds one endpoint URL per chain. A chain with no endpoint
// configured is treated as unsupported everywhere downstream.
type RPCConfig struct {
	Ethereum  string
	Arbitrum  string
	Optimism  string
	Base      string
	Polygon   string
	Avalanche string
	BSC       string
}

type AttestationConfig struct {
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
}

type AggregatorConfig struct {
	BaseURL string
	APIKey  string // optional, requests work unauthenticated but rate-limited
}

type RelayConfig struct {
	BaseURL string
}

// LoadFromEnv reads configuration from environment variables with fallback
// defaults. It also loads `.env` if present (for local development).
func LoadFromEnv() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, relying on environment variables")
	}

	pollInterval, err := time.ParseDuration(getEnv("ATTESTATION_POLL_INTERVAL", "15s"))
	if err != nil {
		log.Fatalf("[FATAL] Invalid ATTESTATION_POLL_INTERVAL: %v", err)
	}
	timeout, err := time.ParseDuration(getEnv("ATTESTATION_TIMEOUT", "15m"))
	if err != nil {
		log.Fatalf("[FATAL] Invalid ATTESTATION_TIMEOUT: %v", err)
	}

	return &Config{
		Env: getEnv("ENV", "dev"),
		RPC: RPCConfig{
			Ethereum:  os.Getenv("ETHEREUM_RPC_URL"),
			Arbitrum:  os.Getenv("ARBITRUM_RPC_URL"),
			Optimism:  os.Getenv("OPTIMISM_RPC_URL"),
			Base:      os.Getenv("BASE_RPC_URL"),
			Polygon:   os.Getenv("POLYGON_RPC_URL"),
			Avalanche: os.Getenv("AVALANCHE_RPC_URL"),
			BSC:       os.Getenv("BSC_RPC_URL"),
		},
		Attestation: AttestationConfig{
			BaseURL:      getEnv("ATTESTATION_BASE_URL", "https://iris-api.circle.com"),
			PollInterval: pollInterval,
			Timeout:      timeout,
		},
		Aggregator: AggregatorConfig{
			BaseURL: getEnv("AGGREGATOR_BASE_URL", "https://li.quest"),
			APIKey:  getEnv("AGGREGATOR_API_KEY", ""),
		},
		Relay: RelayConfig{
			BaseURL: getEnv("RELAY_BASE_URL", "https://api.relay.link"),
		},
	}
}

// helper to get env with default fallback
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
