// Package okx implements the OKX connector. The original connector this
// was distilled from references a market_data/codec/rest/types/conversions
// layer for OKX that was never checked in — only its signer, trading and
// account sub-connectors exist upstream, wired against types that don't
// exist in this tree. This package builds the complete contract OKX's
// public v5 API actually exposes, in the same three-file shape as every
// other venue here, rather than carrying the upstream stub forward.
package okx

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
	Kind MessageKind
	// InstID carries the channel's instrument ID, taken from the push
	// envelope's "arg" object for every kind; books and candle "data" rows
	// don't repeat it per-entry (ticker and trade rows do).
	InstID    string
	Ticker    *tickerData
	OrderBook *booksData
	Trade     *tradeData
	Kline     *candleData
	Raw       json.RawMessage
}

// arg identifies a v5 WS channel: {"channel":"tickers","instId":"BTC-USDT"}.
type arg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

// pushEnvelope mirrors OKX's push-data shape: {"arg":{...},"data":[...]},
// and its ack/error shape: {"event":"subscribe"|"unsubscribe"|"error","arg":{...},"code":"...","msg":"..."}.
type pushEnvelope struct {
	Arg   arg             `json:"arg"`
	Data  json.RawMessage `json:"data"`
	Event string          `json:"event"`
	Code  string          `json:"code"`
	Msg   string          `json:"msg"`
}

type tickerData struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	High24h   string `json:"high24h"`
	Low24h    string `json:"low24h"`
	Vol24h    string `json:"vol24h"`
	Open24h   string `json:"open24h"`
	Timestamp string `json:"ts"`
}

// bookLevel is OKX's 4-tuple order book level: [price, size, deprecated, numOrders].
type bookLevel [4]string

type booksData struct {
	Asks      []bookLevel `json:"asks"`
	Bids      []bookLevel `json:"bids"`
	Timestamp string      `json:"ts"`
	SeqID     int64       `json:"seqId"`
}

type tradeData struct {
	InstID    string `json:"instId"`
	TradeID   string `json:"tradeId"`
	Price     string `json:"px"`
	Size      string `json:"sz"`
	Side      string `json:"side"`
	Timestamp string `json:"ts"`
}

// candleData is OKX's tuple-shaped candle push:
// [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm].
type candleData [9]string

// Codec implements kernel.Codec for OKX's
// {"op":"subscribe"|"unsubscribe","args":[{"channel","instId"},...]} grammar.
type Codec struct{}

func (c *Codec) EncodeSubscription(streams []string) (kernel.Frame, error) {
	return encode("subscribe", streams)
}

func (c *Codec) EncodeUnsubscription(streams []string) (kernel.Frame, error) {
	return encode("unsubscribe", streams)
}

func encode(op string, streams []string) (kernel.Frame, error) {
	args := make([]arg, 0, len(streams))
	for _, stream := range streams {
		var a arg
		if err := json.Unmarshal([]byte(stream), &a); err != nil {
			return nil, fmt.Errorf("okx: invalid subscription arg: %w", err)
		}
		args = append(args, a)
	}

	raw, err := json.Marshal(struct {
		Op   string `json:"op"`
		Args []arg  `json:"args"`
	}{Op: op, Args: args})
	if err != nil {
		return nil, err
	}
	return kernel.Frame(raw), nil
}

func (c *Codec) DecodeMessage(raw []byte) (any, error) {
	var env pushEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}

	if env.Event != "" {
		return &Message{Kind: KindSubscriptionAck}, nil
	}

	switch env.Arg.Channel {
	case "tickers":
		var rows []tickerData
		if err := json.Unmarshal(env.Data, &rows); err != nil || len(rows) == 0 {
			return nil, fmt.Errorf("okx: decode tickers: %w", err)
		}
		return &Message{Kind: KindTicker, InstID: env.Arg.InstID, Ticker: &rows[0]}, nil
	case "books", "books5":
		var rows []booksData
		if err := json.Unmarshal(env.Data, &rows); err != nil || len(rows) == 0 {
			return nil, fmt.Errorf("okx: decode books: %w", err)
		}
		return &Message{Kind: KindOrderBook, InstID: env.Arg.InstID, OrderBook: &rows[0]}, nil
	case "trades":
		var rows []tradeData
		if err := json.Unmarshal(env.Data, &rows); err != nil || len(rows) == 0 {
			return nil, fmt.Errorf("okx: decode trades: %w", err)
		}
		return &Message{Kind: KindTrade, InstID: env.Arg.InstID, Trade: &rows[0]}, nil
	default:
		if hasPrefix(env.Arg.Channel, "candle") {
			var rows []candleData
			if err := json.Unmarshal(env.Data, &rows); err != nil || len(rows) == 0 {
				return nil, fmt.Errorf("okx: decode candle: %w", err)
			}
			return &Message{Kind: KindKline, InstID: env.Arg.InstID, Kline: &rows[0]}, nil
		}
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func marshalArg(channel, instID string) string {
	raw, _ := json.Marshal(arg{Channel: channel, InstID: instID})
	return string(raw)
}

func TickerStream(instID string) string { return marshalArg("tickers", instID) }

func DepthStream(instID string) string { return marshalArg("books", instID) }

func TradeStream(instID string) string { return marshalArg("trades", instID) }

func KlineStream(instID, interval string) string {
	return marshalArg("candle"+interval, instID)
}
