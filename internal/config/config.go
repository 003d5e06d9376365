package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "PesaBridge"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour

	// Avalanche Fuji testnet defaults. The chain id is compared exactly when
	// deciding whether the wallet is on the expected network.
	defaultRPCURL       = "https://api.avax-test.network/ext/bc/C/rpc"
	defaultChainID      = 43113
	defaultUSDCContract = "0x5425890298aed601595a70AB815c96711a31Bc65"

	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	// Chain access.
	RPCURL         string
	ChainID        uint64
	USDCContract   string
	WalletAccounts []string

	// Settlement rails. Empty URLs select the static in-process stubs.
	MobileMoneyAPIURL string
	MobileMoneyAPIKey string
	CardAPIURL        string
	CardAPIKey        string

	// Infrastructure. Optional in development, required otherwise.
	DatabaseURL string
	RedisURL    string

	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            getEnv("APP_ENV", defaultAppEnv),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		RPCURL:            getEnv("RPC_URL", defaultRPCURL),
		ChainID:           defaultChainID,
		USDCContract:      getEnv("USDC_CONTRACT", defaultUSDCContract),
		MobileMoneyAPIURL: os.Getenv("MOBILE_MONEY_API_URL"),
		MobileMoneyAPIKey: os.Getenv("MOBILE_MONEY_API_KEY"),
		CardAPIURL:        os.Getenv("CARD_API_URL"),
		CardAPIKey:        os.Getenv("CARD_API_KEY"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		ShutdownPeriod:    defaultShutdownDelay,
		IdempotencyTTL:    defaultIdempotencyTTL,
	}

	if v := os.Getenv("CHAIN_ID"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHAIN_ID: %w", err)
		}
		cfg.ChainID = id
	}

	if v := os.Getenv("WALLET_ACCOUNTS"); v != "" {
		for _, acct := range strings.Split(v, ",") {
			acct = strings.TrimSpace(acct)
			if acct != "" {
				cfg.WalletAccounts = append(cfg.WalletAccounts, acct)
			}
		}
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	if cfg.RPCURL == "" {
		return Config{}, fmt.Errorf("RPC_URL must be set")
	}
	if cfg.USDCContract == "" {
		return Config{}, fmt.Errorf("USDC_CONTRACT must be set")
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development-like environment where
// in-memory fallbacks for Postgres and Redis are acceptable.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
