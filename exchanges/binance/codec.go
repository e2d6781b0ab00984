// Package binance implements the Binance spot connector: REST market
// data and trading over https://api.binance.com, combined-stream market
// data over wss://stream.binance.com:443/ws.
package binance

import (
	"encoding/json"
	"fmt"
	"strings"

	"xconnect/kernel"
)

// MessageKind tags which field of a Message is populated.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindTicker
	KindOrderBook
	KindTrade
	KindKline
	KindSubscriptionAck
)

// Message is Binance's decoded WS message tagged union.
type Message struct {
	Kind      MessageKind
	Ticker    *tickerEvent
	OrderBook *depthEvent
	Trade     *tradeEvent
	Kline     *klineEvent
	Raw       json.RawMessage // populated when Kind == KindUnknown
}

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type eventTypeProbe struct {
	EventType string `json:"e"`
	Result    any    `json:"result"`
	ID        *int   `json:"id"`
}

type tickerEvent struct {
	Symbol             string `json:"s"`
	PriceChange        string `json:"p"`
	PriceChangePercent string `json:"P"`
	LastPrice          string `json:"c"`
	HighPrice          string `json:"h"`
	LowPrice           string `json:"l"`
	Volume             string `json:"v"`
	OpenTime           int64  `json:"O"`
	CloseTime          int64  `json:"C"`
	Count              int64  `json:"n"`
}

type depthLevel [2]string

type depthEvent struct {
	Symbol        string       `json:"s"`
	FinalUpdateID int64        `json:"u"`
	Bids          []depthLevel `json:"b"`
	Asks          []depthLevel `json:"a"`
}

type tradeEvent struct {
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

type klineEvent struct {
	Symbol string `json:"s"`
	Kline  struct {
		StartTime   int64  `json:"t"`
		CloseTime   int64  `json:"T"`
		Interval    string `json:"i"`
		Open        string `json:"o"`
		Close       string `json:"c"`
		High        string `json:"h"`
		Low         string `json:"l"`
		Volume      string `json:"v"`
		QuoteVolume string `json:"q"`
		Trades      int64  `json:"n"`
		IsFinal     bool   `json:"x"`
	} `json:"k"`
}

// Codec implements kernel.Codec for Binance's combined-stream envelope
// ({"stream":"...","data":{...}}) and subscribe/unsubscribe method frames.
type Codec struct {
	nextID int
}

func (c *Codec) EncodeSubscription(streams []string) (kernel.Frame, error) {
	return c.encode("SUBSCRIBE", streams)
}

func (c *Codec) EncodeUnsubscription(streams []string) (kernel.Frame, error) {
	return c.encode("UNSUBSCRIBE", streams)
}

func (c *Codec) encode(method string, streams []string) (kernel.Frame, error) {
	c.nextID++
	frame := map[string]any{
		"method": method,
		"params": streams,
		"id":     c.nextID,
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return nil, err
	}
	return kernel.Frame(raw), nil
}

func (c *Codec) DecodeMessage(raw []byte) (any, error) {
	var env streamEnvelope
	payload := raw
	if err := json.Unmarshal(raw, &env); err == nil && env.Stream != "" {
		payload = env.Data
	}

	var probe eventTypeProbe
	if err := json.Unmarshal(payload, &probe); err != nil {
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}
	if probe.ID != nil {
		return &Message{Kind: KindSubscriptionAck}, nil
	}

	switch probe.EventType {
	case "24hrTicker":
		var ev tickerEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("binance: decode ticker: %w", err)
		}
		return &Message{Kind: KindTicker, Ticker: &ev}, nil
	case "depthUpdate":
		var ev depthEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("binance: decode depth: %w", err)
		}
		return &Message{Kind: KindOrderBook, OrderBook: &ev}, nil
	case "trade":
		var ev tradeEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("binance: decode trade: %w", err)
		}
		return &Message{Kind: KindTrade, Trade: &ev}, nil
	case "kline":
		var ev klineEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("binance: decode kline: %w", err)
		}
		return &Message{Kind: KindKline, Kline: &ev}, nil
	default:
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}
}

// TickerStream renders the "<sym_lower>@ticker" grammar.
func TickerStream(symbol string) string {
	return strings.ToLower(symbol) + "@ticker"
}

// DepthStream renders "<sym_lower>@depth[<N>]@100ms"; depth of 0 uses the
// venue's partial-book default stream without a level suffix.
func DepthStream(symbol string, depth int) string {
	if depth <= 0 {
		return strings.ToLower(symbol) + "@depth@100ms"
	}
	return fmt.Sprintf("%s@depth%d@100ms", strings.ToLower(symbol), depth)
}

// TradeStream renders "<sym_lower>@trade".
func TradeStream(symbol string) string {
	return strings.ToLower(symbol) + "@trade"
}

// KlineStream renders "<sym_lower>@kline_<iv>".
func KlineStream(symbol, interval string) string {
	return strings.ToLower(symbol) + "@kline_" + interval
}

func parseDepthLevels(levels []depthLevel) []priceLevelStrings {
	out := make([]priceLevelStrings, 0, len(levels))
	for _, l := range levels {
		out = append(out, priceLevelStrings{Price: l[0], Quantity: l[1]})
	}
	return out
}

type priceLevelStrings struct {
	Price    string
	Quantity string
}
