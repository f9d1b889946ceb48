// Command marketd runs one matching/risk engine process: it loads a
// market's configuration, restores or creates its state, serves the
// REST/WebSocket API over it, and cranks funding on a fixed interval
// until told to stop.
package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uhyunpark/hyperlicked/params"
	"github.com/uhyunpark/hyperlicked/pkg/api"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/market"
	"github.com/uhyunpark/hyperlicked/pkg/custodian"
	"github.com/uhyunpark/hyperlicked/pkg/globalpool"
	"github.com/uhyunpark/hyperlicked/pkg/oracle"
	"github.com/uhyunpark/hyperlicked/pkg/storage"
	"github.com/uhyunpark/hyperlicked/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/node.log"
	}
	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	store, err := storage.Open(cfg.Server.DataDir)
	if err != nil {
		sugar.Fatalw("storage_open_failed", "err", err)
	}
	defer store.Close()

	cust := custodian.NewInMemory()
	feed := oracle.Static{
		ID:      cfg.Market.OracleFeedID,
		Reading: oracle.Reading{Mantissa: 2_000_000, Exponent: -2}, // $20,000.00 devnet default
	}
	pool := globalpool.Always(true)

	registry := market.NewMarketRegistry()
	chainID := big.NewInt(cfg.ChainID)
	apiServer := api.NewServer(registry, chainID, logger)
	sink := storage.NewEventSink(store, cfg.Symbol, api.NewHubSink(apiServer.Hub(), cfg.Symbol))

	var m *market.Market
	if snap, ok, loadErr := store.LoadSnapshot(cfg.Symbol); loadErr != nil {
		sugar.Fatalw("snapshot_load_failed", "err", loadErr)
	} else if ok {
		m = market.Restore(snap, feed, cust, pool, logger, sink)
		sugar.Infow("market_restored", "symbol", cfg.Symbol)
	} else {
		m, err = market.New(cfg.Symbol, cfg.Market, feed, cust, logger, sink)
		if err != nil {
			sugar.Fatalw("market_create_failed", "err", err)
		}
	}
	m.SetGlobalPool(pool)
	if err := registry.RegisterMarket(m); err != nil {
		sugar.Fatalw("market_register_failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Server.Addr)
		if err := apiServer.Start(cfg.Server.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	fundingTick := time.Duration(cfg.Server.FundingTick) * time.Second
	ticker := time.NewTicker(fundingTick)
	defer ticker.Stop()

	sugar.Infow("node_starting", "symbol", cfg.Symbol, "funding_tick_seconds", cfg.Server.FundingTick)

	for {
		select {
		case <-ctx.Done():
			sugar.Info("shutdown_signal_received")
			if err := store.SaveSnapshot(m.Snapshot()); err != nil {
				sugar.Errorw("snapshot_save_failed", "err", err)
			} else {
				sugar.Infow("snapshot_saved", "symbol", cfg.Symbol)
			}
			return
		case now := <-ticker.C:
			if err := m.CrankFunding(now.Unix()); err != nil {
				sugar.Warnw("funding_crank_failed", "err", err)
			}
		}
	}
}
