// Package bybit implements the Bybit V5 spot connector: REST over
// https://api.bybit.com, public market data over
// wss://stream.bybit.com/v5/public/spot.
package bybit

import (
	"encoding/json"
	"fmt"
	"strconv"

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

// Message is Bybit V5's decoded public WS message tagged union.
type Message struct {
	Kind      MessageKind
	Ticker    *tickerData
	OrderBook *orderBookData
	Trade     *tradeData
	Kline     *klineData
	Raw       json.RawMessage
}

type topicEnvelope struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Success *bool           `json:"success"`
	Op      string          `json:"op"`
}

type tickerData struct {
	Symbol       string `json:"symbol"`
	LastPrice    string `json:"lastPrice"`
	HighPrice24h string `json:"highPrice24h"`
	LowPrice24h  string `json:"lowPrice24h"`
	Volume24h    string `json:"volume24h"`
	Price24hPcnt string `json:"price24hPcnt"`
}

type level [2]string

type orderBookData struct {
	Symbol string  `json:"s"`
	Bids   []level `json:"b"`
	Asks   []level `json:"a"`
	Seq    int64   `json:"u"`
}

type tradeEntry struct {
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Size      string `json:"v"`
	Side      string `json:"S"`
	Timestamp int64  `json:"T"`
	TradeID   string `json:"i"`
}

type tradeData struct {
	entries []tradeEntry
}

func (t *tradeData) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &t.entries)
}

type klineEntry struct {
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Interval string `json:"interval"`
	Open     string `json:"open"`
	Close    string `json:"close"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Volume   string `json:"volume"`
	Turnover string `json:"turnover"`
	Confirm  bool   `json:"confirm"`
}

type klineData struct {
	entries []klineEntry
}

func (k *klineData) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &k.entries)
}

// Codec implements kernel.Codec for Bybit V5's {op, args} subscription
// envelope and topic-tagged push frames.
type Codec struct{}

func (c *Codec) EncodeSubscription(streams []string) (kernel.Frame, error) {
	return c.encode("subscribe", streams)
}

func (c *Codec) EncodeUnsubscription(streams []string) (kernel.Frame, error) {
	return c.encode("unsubscribe", streams)
}

func (c *Codec) encode(op string, streams []string) (kernel.Frame, error) {
	raw, err := json.Marshal(map[string]any{"op": op, "args": streams})
	if err != nil {
		return nil, err
	}
	return kernel.Frame(raw), nil
}

func (c *Codec) DecodeMessage(raw []byte) (any, error) {
	var env topicEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}
	if env.Op != "" || env.Success != nil {
		return &Message{Kind: KindSubscriptionAck}, nil
	}

	switch {
	case hasPrefix(env.Topic, "tickers."):
		var ev tickerData
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("bybit: decode ticker: %w", err)
		}
		return &Message{Kind: KindTicker, Ticker: &ev}, nil
	case hasPrefix(env.Topic, "orderbook."):
		var ev orderBookData
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("bybit: decode orderbook: %w", err)
		}
		return &Message{Kind: KindOrderBook, OrderBook: &ev}, nil
	case hasPrefix(env.Topic, "publicTrade."):
		var ev tradeData
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("bybit: decode trade: %w", err)
		}
		return &Message{Kind: KindTrade, Trade: &ev}, nil
	case hasPrefix(env.Topic, "kline."):
		var ev klineData
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("bybit: decode kline: %w", err)
		}
		return &Message{Kind: KindKline, Kline: &ev}, nil
	default:
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// TickerStream renders "tickers.<SYM>".
func TickerStream(symbol string) string { return "tickers." + symbol }

// DepthStream renders "orderbook.<depth>.<SYM>"; depth of 0 uses V5's
// shallowest supported book (depth 1).
func DepthStream(symbol string, depth int) string {
	if depth <= 0 {
		depth = 1
	}
	return "orderbook." + strconv.Itoa(depth) + "." + symbol
}

// TradeStream renders "publicTrade.<SYM>".
func TradeStream(symbol string) string { return "publicTrade." + symbol }

// KlineStream renders "kline.<iv>.<SYM>".
func KlineStream(symbol, interval string) string { return "kline." + interval + "." + symbol }
