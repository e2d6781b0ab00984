// Package paradex implements the Paradex connector: JWT bearer
// authentication over a wallet address derived from a secp256k1 key, a REST surface
// that sometimes wraps its payload in a {"data": ...} envelope and
// sometimes returns the array directly, and a Binance-shaped
// subscribe/unsubscribe WS grammar built from "<kind>@<symbol>" channel
// names.
package paradex

import (
	"encoding/json"
	"fmt"

	"xconnect/kernel"
)

type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindTicker
	KindOrderBook
	KindTrade
	KindKline
	KindSubscriptionAck
)

type Message struct {
	Kind      MessageKind
	Ticker    *tickerEvent
	OrderBook *depthEvent
	Trade     *tradeEvent
	Kline     *klineEvent
	Raw       json.RawMessage
}

// envelope mirrors ParadexWebSocketMessage: every push carries the
// channel it was delivered on alongside a free-form data payload.
type envelope struct {
	Channel   string          `json:"channel"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	Method    string          `json:"method"`
	ID        *int64          `json:"id"`
}

type tickerEvent struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"last_price"`
	HighPrice          string `json:"high_price"`
	LowPrice           string `json:"low_price"`
	Volume             string `json:"volume"`
	PriceChange        string `json:"price_change"`
	PriceChangePercent string `json:"price_change_percent"`
}

type level struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type depthEvent struct {
	Symbol   string  `json:"symbol"`
	Bids     []level `json:"bids"`
	Asks     []level `json:"asks"`
	UpdateID int64   `json:"update_id"`
}

type tradeEvent struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
	TradeID   int64  `json:"trade_id"`
	Timestamp int64  `json:"timestamp"`
	IsBuyerMM bool   `json:"is_buyer_maker"`
}

type klineEvent struct {
	Symbol    string `json:"symbol"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    string `json:"volume"`
	Final     bool   `json:"final"`
}

// Codec implements kernel.Codec for Paradex's
// {"method":"SUBSCRIBE"|"UNSUBSCRIBE","params":[...],"id":n} envelope,
// matching ParadexWebSocketSubscription.
type Codec struct{}

func (c *Codec) EncodeSubscription(streams []string) (kernel.Frame, error) {
	return encode("SUBSCRIBE", streams)
}

func (c *Codec) EncodeUnsubscription(streams []string) (kernel.Frame, error) {
	return encode("UNSUBSCRIBE", streams)
}

func encode(method string, streams []string) (kernel.Frame, error) {
	raw, err := json.Marshal(struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int64    `json:"id"`
	}{Method: method, Params: streams, ID: 1})
	if err != nil {
		return nil, err
	}
	return kernel.Frame(raw), nil
}

func (c *Codec) DecodeMessage(raw []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}

	if env.Channel == "" {
		return &Message{Kind: KindSubscriptionAck}, nil
	}

	switch {
	case hasPrefix(env.Channel, "ticker@"):
		var ev tickerEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("paradex: decode ticker: %w", err)
		}
		return &Message{Kind: KindTicker, Ticker: &ev}, nil
	case hasPrefix(env.Channel, "depth"):
		var ev depthEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("paradex: decode depth: %w", err)
		}
		return &Message{Kind: KindOrderBook, OrderBook: &ev}, nil
	case hasPrefix(env.Channel, "trade@"):
		var ev tradeEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("paradex: decode trade: %w", err)
		}
		return &Message{Kind: KindTrade, Trade: &ev}, nil
	case hasPrefix(env.Channel, "kline_"):
		var ev klineEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("paradex: decode kline: %w", err)
		}
		return &Message{Kind: KindKline, Kline: &ev}, nil
	default:
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// TickerStream, DepthStream, TradeStream and KlineStream build the
// "<kind>@<symbol>" channel names create_subscription_channel renders,
// e.g. "ticker@BTC-USD-PERP", "depth20@BTC-USD-PERP", "kline_1m@BTC-USD-PERP".
func TickerStream(symbol string) string { return "ticker@" + symbol }

func DepthStream(symbol string, depth int) string {
	if depth <= 0 {
		return "depth@" + symbol
	}
	return fmt.Sprintf("depth%d@%s", depth, symbol)
}

func TradeStream(symbol string) string { return "trade@" + symbol }

func KlineStream(symbol, interval string) string {
	return fmt.Sprintf("kline_%s@%s", interval, symbol)
}
