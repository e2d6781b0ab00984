// Package contracts defines the four capability interfaces every venue
// adapter composes: market data, trading, account, and (for perpetual
// venues) funding rates. Consumers program against these, never against a
// concrete *exchanges.<venue>.Connector, so strategy code is venue-blind.
package contracts

import (
	"context"

	"xconnect/types"
)

// SubscriptionType names a WS market-data stream kind a consumer can ask
// for via MarketData.SubscribeMarketData.
type SubscriptionType int

const (
	SubscribeTicker SubscriptionType = iota
	SubscribeOrderBook
	SubscribeTrade
	SubscribeKline
)

// Subscription pairs a symbol with the kind of stream wanted for it, and
// carries subscription-specific parameters (order book depth, kline
// interval).
type Subscription struct {
	Symbol   types.Symbol
	Type     SubscriptionType
	Depth    int               // for SubscribeOrderBook; 0 means venue default
	Interval types.KlineInterval // for SubscribeKline
}

// MarketDataEventType tags which field of a MarketDataEvent is populated.
type MarketDataEventType int

const (
	EventTicker MarketDataEventType = iota
	EventOrderBook
	EventTrade
	EventKline
)

// MarketDataEvent is the unified event delivered to a subscriber's
// channel, regardless of venue.
type MarketDataEvent struct {
	Type      MarketDataEventType
	Ticker    *types.Ticker
	OrderBook *types.OrderBook
	Trade     *types.Trade
	Kline     *types.Kline
}

// MarketData is implemented by every venue adapter.
type MarketData interface {
	GetMarkets(ctx context.Context) ([]types.Market, error)
	GetKlines(ctx context.Context, symbol types.Symbol, interval types.KlineInterval, limit int) ([]types.Kline, error)
	GetWebSocketURL() string

	// SubscribeMarketData opens (or reuses) the adapter's WS session and
	// streams decoded events for the requested subscriptions into the
	// returned channel. The channel is closed when ctx is cancelled or
	// the consumer's receiver is dropped and the producer observes a
	// blocked send with ctx.Done() signalled.
	SubscribeMarketData(ctx context.Context, subs []Subscription) (<-chan MarketDataEvent, error)
}

// FundingRates is implemented only by perpetual-venue adapters.
type FundingRates interface {
	GetFundingRate(ctx context.Context, symbol types.Symbol) (types.FundingRate, error)
}

// Trading is implemented by every venue adapter. Adapters without
// credentials return xerrors.KindAuthenticationRequired without making a
// network call.
type Trading interface {
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResponse, error)
	CancelOrder(ctx context.Context, symbol types.Symbol, orderID string) error
}

// Account is implemented by every venue adapter. Spot-only venues return
// an empty slice (not an error) from GetPositions.
type Account interface {
	GetAccountBalance(ctx context.Context) ([]types.Balance, error)
	GetPositions(ctx context.Context) ([]types.Position, error)
}

// Connector is the full surface a venue adapter exposes. Embedding the
// four narrower interfaces instead of one flat interface keeps the
// capability contracts independently testable and mockable.
type Connector interface {
	MarketData
	Trading
	Account

	HasCredentials() bool
	Name() string
}
