// Command xconnect-demo is a minimal smoke harness for the connector
// library: it builds every venue connector with empty credentials
// (config.New("", "")), so only public market-data calls are made, and
// prints their market catalogs. The .env file it loads is not read by
// any connector. This exercises the
// library the way a consuming service would rather than shipping a
// production trading bot.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"xconnect/config"
	"xconnect/contracts"
	"xconnect/exchanges/backpack"
	"xconnect/exchanges/binance"
	"xconnect/exchanges/binanceperp"
	"xconnect/exchanges/bybit"
	"xconnect/exchanges/bybitperp"
	"xconnect/exchanges/hyperliquid"
	"xconnect/exchanges/okx"
	"xconnect/exchanges/paradex"
	"xconnect/telemetry"
)

func main() {
	_ = config.LoadDotenv(".env")

	connectors := []contracts.Connector{
		binance.NewConnector(config.New("", "")),
		binanceperp.NewConnector(config.New("", "")),
		bybit.NewConnector(config.New("", "")),
		bybitperp.NewConnector(config.New("", "")),
		backpack.NewConnector(config.New("", "")),
		hyperliquid.NewConnector(config.New("", "")),
		paradex.NewConnector(config.New("", "")),
		okx.NewConnector(config.New("", "")),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exitCode := 0
	for _, c := range connectors {
		markets, err := c.GetMarkets(ctx)
		if err != nil {
			telemetry.Logger.Error().Err(err).Str("venue", c.Name()).Msg("failed to fetch markets")
			exitCode = 1
			continue
		}
		fmt.Printf("%-12s %5d markets, credentials=%v\n", c.Name(), len(markets), c.HasCredentials())
	}

	os.Exit(exitCode)
}
