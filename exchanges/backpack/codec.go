// Package backpack implements the Backpack Exchange connector: REST over
// https://api.backpack.exchange signed with Ed25519 per-instruction
// signatures, and public/private market data over
// wss://ws.backpack.exchange. Stream payloads carry an "e" event-type
// discriminator ("24hrTicker", "depthUpdate", "trade", "kline") rather
// than a topic prefix, unlike the Binance/Bybit families.
package backpack

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

type envelope struct {
	Event  string          `json:"e"`
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
	Result json.RawMessage `json:"result"`
	ID     *int64          `json:"id"`
}

// tickerEvent mirrors Backpack's "24hrTicker" stream payload.
type tickerEvent struct {
	Symbol             string `json:"s"`
	LastPrice          string `json:"c"`
	HighPrice          string `json:"h"`
	LowPrice           string `json:"l"`
	Volume             string `json:"v"`
	PriceChange        string `json:"p"`
	PriceChangePercent string `json:"P"`
}

type level [2]string

// depthEvent mirrors Backpack's "depthUpdate" stream payload.
type depthEvent struct {
	Symbol   string  `json:"s"`
	Bids     []level `json:"b"`
	Asks     []level `json:"a"`
	UpdateID int64   `json:"u"`
}

// tradeEvent mirrors Backpack's "trade" stream payload.
type tradeEvent struct {
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeID   int64  `json:"t"`
	Timestamp int64  `json:"T"`
	IsBuyerMM bool   `json:"m"`
}

// klineEvent mirrors Backpack's "kline" stream payload.
type klineEvent struct {
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	StartTime int64  `json:"t"`
	EndTime   int64  `json:"T"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	Final     bool   `json:"X"`
}

// Codec implements kernel.Codec for Backpack's stream grammar and
// {method, params, id} subscription envelope.
type Codec struct{}

func (c *Codec) EncodeSubscription(streams []string) (kernel.Frame, error) {
	return c.encode("SUBSCRIBE", streams)
}

func (c *Codec) EncodeUnsubscription(streams []string) (kernel.Frame, error) {
	return c.encode("UNSUBSCRIBE", streams)
}

func (c *Codec) encode(method string, streams []string) (kernel.Frame, error) {
	raw, err := json.Marshal(map[string]any{"method": method, "params": streams, "id": 1})
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
	if env.ID != nil || env.Result != nil {
		return &Message{Kind: KindSubscriptionAck}, nil
	}

	switch env.Event {
	case "24hrTicker":
		var ev tickerEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("backpack: decode ticker: %w", err)
		}
		return &Message{Kind: KindTicker, Ticker: &ev}, nil
	case "depthUpdate":
		var ev depthEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("backpack: decode orderbook: %w", err)
		}
		return &Message{Kind: KindOrderBook, OrderBook: &ev}, nil
	case "trade":
		var ev tradeEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("backpack: decode trade: %w", err)
		}
		return &Message{Kind: KindTrade, Trade: &ev}, nil
	case "kline":
		var ev klineEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("backpack: decode kline: %w", err)
		}
		return &Message{Kind: KindKline, Kline: &ev}, nil
	default:
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}
}

func TickerStream(symbol string) string { return "ticker." + symbol }

func DepthStream(symbol string) string { return "depth." + symbol }

func TradeStream(symbol string) string { return "trade." + symbol }

func KlineStream(symbol, interval string) string { return "kline." + interval + "." + symbol }
