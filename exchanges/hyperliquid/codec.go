// Package hyperliquid implements the Hyperliquid connector: a single
// POST /info endpoint carrying a {"type": ...} discriminated body for
// all reads, a single POST /exchange endpoint carrying a signed L1
// action envelope for all writes, and a WS channel-tagged push stream.
// Unlike every other venue here, HTTP requests themselves are never
// signed — only the action JSON submitted to /exchange is (see
// kernel.HyperliquidSigner).
package hyperliquid

import (
	"bytes"
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
	Ticker    *allMidsData
	OrderBook *l2BookData
	Trade     *tradeEvent
	Kline     *candleEvent
	Raw       json.RawMessage
}

type wsEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// allMidsData mirrors the "allMids" channel push: a coin->mid-price map.
type allMidsData struct {
	Mids map[string]string `json:"mids"`
}

type bookLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
}

// l2BookData mirrors the "l2Book" channel push.
type l2BookData struct {
	Coin   string         `json:"coin"`
	Levels [2][]bookLevel `json:"levels"`
	Time   int64          `json:"time"`
}

type tradeEntry struct {
	Coin string `json:"coin"`
	Side string `json:"side"`
	Px   string `json:"px"`
	Sz   string `json:"sz"`
	Time int64  `json:"time"`
	Tid  int64  `json:"tid"`
}

// tradeEvent mirrors the "trades" channel push, which batches entries.
type tradeEvent struct {
	entries []tradeEntry
}

func (t *tradeEvent) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &t.entries)
}

// candleEvent mirrors the "candle" channel push.
type candleEvent struct {
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	StartTime int64  `json:"t"`
	EndTime   int64  `json:"T"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
}

// Codec implements kernel.Codec for Hyperliquid's channel-subscription
// WS grammar: {"method":"subscribe"/"unsubscribe","subscription":{...}}.
type Codec struct{}

func (c *Codec) EncodeSubscription(streams []string) (kernel.Frame, error) {
	return c.encodeAll("subscribe", streams)
}

func (c *Codec) EncodeUnsubscription(streams []string) (kernel.Frame, error) {
	return c.encodeAll("unsubscribe", streams)
}

// encodeAll renders each stream descriptor as its own
// {"method":...,"subscription":{...}} message, newline-joined into one
// Frame: Hyperliquid's protocol has no batched-subscribe form, so
// kernel.WSSession.send splits a frame on '\n' and writes each line as
// its own WebSocket text message.
func (c *Codec) encodeAll(method string, streams []string) (kernel.Frame, error) {
	lines := make([][]byte, 0, len(streams))
	for _, stream := range streams {
		var sub map[string]any
		if err := json.Unmarshal([]byte(stream), &sub); err != nil {
			return nil, fmt.Errorf("hyperliquid: invalid subscription descriptor: %w", err)
		}
		raw, err := json.Marshal(map[string]any{"method": method, "subscription": sub})
		if err != nil {
			return nil, err
		}
		lines = append(lines, raw)
	}
	return kernel.Frame(bytes.Join(lines, []byte("\n"))), nil
}

func (c *Codec) DecodeMessage(raw []byte) (any, error) {
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}

	switch env.Channel {
	case "subscriptionResponse":
		return &Message{Kind: KindSubscriptionAck}, nil
	case "allMids":
		var ev allMidsData
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("hyperliquid: decode allMids: %w", err)
		}
		return &Message{Kind: KindTicker, Ticker: &ev}, nil
	case "l2Book":
		var ev l2BookData
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("hyperliquid: decode l2Book: %w", err)
		}
		return &Message{Kind: KindOrderBook, OrderBook: &ev}, nil
	case "trades":
		var ev tradeEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("hyperliquid: decode trades: %w", err)
		}
		return &Message{Kind: KindTrade, Trade: &ev}, nil
	case "candle":
		var ev candleEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("hyperliquid: decode candle: %w", err)
		}
		return &Message{Kind: KindKline, Kline: &ev}, nil
	default:
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}
}

// TickerSubscription, DepthSubscription, TradeSubscription and
// KlineSubscription each render a single {"type":...,"coin":...}
// descriptor as the JSON string the reconnecting session passes through
// Codec.EncodeSubscription/EncodeUnsubscription one at a time.

func TickerSubscription(coin string) string {
	raw, _ := json.Marshal(map[string]any{"type": "allMids"})
	_ = coin // allMids is exchange-wide; coin is accepted for interface symmetry with other venues
	return string(raw)
}

func DepthSubscription(coin string) string {
	raw, _ := json.Marshal(map[string]any{"type": "l2Book", "coin": coin})
	return string(raw)
}

func TradeSubscription(coin string) string {
	raw, _ := json.Marshal(map[string]any{"type": "trades", "coin": coin})
	return string(raw)
}

func KlineSubscription(coin, interval string) string {
	raw, _ := json.Marshal(map[string]any{"type": "candle", "coin": coin, "interval": interval})
	return string(raw)
}
