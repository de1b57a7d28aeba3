// Package config holds the static network and contract identifiers supplied
// at process start, plus the tunables for confirmation and event polling.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds client configuration.
type Config struct {
	// Network identifiers.
	SorobanRPCURL     string
	HorizonURL        string
	NetworkPassphrase string
	FriendbotURL      string
	ContractID        string
	ExplorerURL       string

	// MockMode swaps the remote ledger for an in-memory fake so the client
	// can run without a deployed contract.
	MockMode bool

	// Confirmation polling.
	ConfirmInterval      time.Duration
	ContractConfirmTries int
	PaymentConfirmTries  int

	// Event feed polling.
	EventPollInterval time.Duration
	EventLookback     uint32
	EventBatchLimit   int

	LogLevel string
}

// Testnet identifiers, used as defaults.
const (
	TestnetRPCURL     = "https://soroban-testnet.stellar.org"
	TestnetHorizonURL = "https://horizon-testnet.stellar.org"
	TestnetPassphrase = "Test SDF Network ; September 2015"
	FriendbotURL      = "https://friendbot.stellar.org"
)

// Load loads configuration from environment variables with testnet defaults.
func Load() *Config {
	cfg := &Config{
		SorobanRPCURL:     envOr("STARFUND_RPC_URL", TestnetRPCURL),
		HorizonURL:        envOr("STARFUND_HORIZON_URL", TestnetHorizonURL),
		NetworkPassphrase: envOr("STARFUND_NETWORK_PASSPHRASE", TestnetPassphrase),
		FriendbotURL:      envOr("STARFUND_FRIENDBOT_URL", FriendbotURL),
		ContractID:        os.Getenv("STARFUND_CONTRACT_ID"),
		ExplorerURL:       envOr("STARFUND_EXPLORER_URL", "https://stellar.expert/explorer/testnet"),
		MockMode:          os.Getenv("STARFUND_MOCK_MODE") == "true",

		ConfirmInterval:      2 * time.Second,
		ContractConfirmTries: 20,
		PaymentConfirmTries:  10,

		EventPollInterval: 5 * time.Second,
		EventLookback:     1000,
		EventBatchLimit:   20,

		LogLevel: envOr("LOG_LEVEL", "INFO"),
	}

	if v := os.Getenv("STARFUND_EVENT_POLL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.EventPollInterval = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
