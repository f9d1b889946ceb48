// Package params loads a market's creation-time configuration the way
// the teacher's params/config.go loads node/consensus configuration:
// hardcoded defaults overridable by a .env file and then by the process
// environment, env > .env > defaults.
package params

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/market"
)

// Server is the API server's own listen/storage configuration; it sits
// alongside the market parameters but is not part of the account model
// itself (spec.md §1 places CLI/SDK/transport concerns out of scope).
type Server struct {
	Addr        string
	DataDir     string
	FundingTick int // seconds between automatic crank_funding calls
}

// Config is everything a single `marketd` process needs to create one
// market and start serving it.
type Config struct {
	Symbol  string
	ChainID int64 // EIP-712 domain separator for signed order/cancel/withdraw intents
	Market  market.Params
	Server  Server
}

// Default mirrors the teacher's Default(): a runnable devnet
// configuration with no environment required.
func Default() Config {
	return Config{
		Symbol:  "HYPL-USDC",
		ChainID: 1337,
		Market: market.Params{
			BaseDecimals:         9,
			QuoteDecimals:        6,
			InitialMarginBps:     1_000, // 10x max leverage
			MaintenanceMarginBps: 500,   // 5%
			TakerFeeBps:          5,     // 5 bps
			LiquidationBufferBps: 200,   // 2%
		},
		Server: Server{
			Addr:        ":8080",
			DataDir:     "data/market.db",
			FundingTick: 60,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (optional) and the
// process environment. envPath == "" loads ".env" from the current
// directory, matching the teacher's LoadFromEnv convention.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("MARKET_SYMBOL"); v != "" {
		cfg.Symbol = v
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.ChainID = n
		}
	}
	if v := getEnvUint32("BASE_DECIMALS"); v != nil {
		cfg.Market.BaseDecimals = uint8(*v)
	}
	if v := getEnvUint32("QUOTE_DECIMALS"); v != nil {
		cfg.Market.QuoteDecimals = uint8(*v)
	}
	if v := getEnvUint32("INITIAL_MARGIN_BPS"); v != nil {
		cfg.Market.InitialMarginBps = *v
	}
	if v := getEnvUint32("MAINTENANCE_MARGIN_BPS"); v != nil {
		cfg.Market.MaintenanceMarginBps = *v
	}
	if v := getEnvUint32("TAKER_FEE_BPS"); v != nil {
		cfg.Market.TakerFeeBps = *v
	}
	if v := getEnvUint32("LIQUIDATION_BUFFER_BPS"); v != nil {
		cfg.Market.LiquidationBufferBps = *v
	}
	if v := os.Getenv("QUOTE_MINT"); v != "" {
		cfg.Market.QuoteMint = common.HexToHash(v)
	}
	if v := os.Getenv("ORACLE_FEED_ID"); v != "" {
		cfg.Market.OracleFeedID = common.HexToHash(v)
	}

	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Server.DataDir = v
	}
	if v := os.Getenv("FUNDING_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.FundingTick = n
		}
	}

	return cfg
}

func getEnvUint32(key string) *uint32 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return nil
	}
	out := uint32(n)
	return &out
}

// Validate re-exposes market.Params.Validate so a caller can fail fast
// with a descriptive error before bothering to open storage or bind a
// listener.
func (c Config) Validate() error {
	if err := c.Market.Validate(); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	return nil
}
