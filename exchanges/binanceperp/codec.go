// Package binanceperp implements the Binance USDT-margined perpetual
// connector: REST over https://fapi.binance.com, combined-stream market
// data over wss://fstream.binance.com/ws. Wire shapes mirror Binance
// spot with the addition of mark-price and funding-rate events.
package binanceperp

import (
	"encoding/json"
	"fmt"
	"strings"

	"xconnect/kernel"
)

type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindTicker
	KindOrderBook
	KindTrade
	KindKline
	KindMarkPrice
	KindSubscriptionAck
)

type Message struct {
	Kind      MessageKind
	Ticker    *tickerEvent
	OrderBook *depthEvent
	Trade     *tradeEvent
	Kline     *klineEvent
	MarkPrice *markPriceEvent
	Raw       json.RawMessage
}

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type eventTypeProbe struct {
	EventType string `json:"e"`
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

// markPriceEvent carries Binance futures' mark price + funding-rate
// push, delivered on the "<sym>@markPrice" stream.
type markPriceEvent struct {
	Symbol          string `json:"s"`
	MarkPrice       string `json:"p"`
	IndexPrice      string `json:"i"`
	FundingRate     string `json:"r"`
	NextFundingTime int64  `json:"T"`
}

// Codec implements kernel.Codec for Binance USDT-margined futures.
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
	raw, err := json.Marshal(map[string]any{"method": method, "params": streams, "id": c.nextID})
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
			return nil, fmt.Errorf("binanceperp: decode ticker: %w", err)
		}
		return &Message{Kind: KindTicker, Ticker: &ev}, nil
	case "depthUpdate":
		var ev depthEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("binanceperp: decode depth: %w", err)
		}
		return &Message{Kind: KindOrderBook, OrderBook: &ev}, nil
	case "trade":
		var ev tradeEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("binanceperp: decode trade: %w", err)
		}
		return &Message{Kind: KindTrade, Trade: &ev}, nil
	case "kline":
		var ev klineEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("binanceperp: decode kline: %w", err)
		}
		return &Message{Kind: KindKline, Kline: &ev}, nil
	case "markPriceUpdate":
		var ev markPriceEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("binanceperp: decode mark price: %w", err)
		}
		return &Message{Kind: KindMarkPrice, MarkPrice: &ev}, nil
	default:
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}
}

func TickerStream(symbol string) string { return strings.ToLower(symbol) + "@ticker" }

func DepthStream(symbol string, depth int) string {
	if depth <= 0 {
		return strings.ToLower(symbol) + "@depth@100ms"
	}
	return fmt.Sprintf("%s@depth%d@100ms", strings.ToLower(symbol), depth)
}

func TradeStream(symbol string) string { return strings.ToLower(symbol) + "@trade" }

func KlineStream(symbol, interval string) string {
	return strings.ToLower(symbol) + "@kline_" + interval
}

func MarkPriceStream(symbol string) string { return strings.ToLower(symbol) + "@markPrice" }
