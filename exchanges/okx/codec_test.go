package okx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Subscription grammar — golden table
// ============================================================

func TestStreamGrammar(t *testing.T) {
	assert.JSONEq(t, `{"channel":"tickers","instId":"BTC-USDT"}`, TickerStream("BTC-USDT"))
	assert.JSONEq(t, `{"channel":"books","instId":"BTC-USDT"}`, DepthStream("BTC-USDT"))
	assert.JSONEq(t, `{"channel":"trades","instId":"BTC-USDT"}`, TradeStream("BTC-USDT"))
	assert.JSONEq(t, `{"channel":"candle1m","instId":"BTC-USDT"}`, KlineStream("BTC-USDT", "1m"))
}

func TestCodec_EncodeSubscription(t *testing.T) {
	c := &Codec{}
	frame, err := c.EncodeSubscription([]string{TickerStream("BTC-USDT")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"subscribe","args":[{"channel":"tickers","instId":"BTC-USDT"}]}`, string(frame))
}

func TestCodec_EncodeSubscription_RejectsMalformedStream(t *testing.T) {
	c := &Codec{}
	_, err := c.EncodeSubscription([]string{"not-json"})
	assert.Error(t, err)
}

// ============================================================
// DecodeMessage — channel dispatch, InstID threaded from arg
// ============================================================

func TestCodec_DecodeMessage_Ticker(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"arg":{"channel":"tickers","instId":"BTC-USDT"},"data":[{"instId":"BTC-USDT","last":"65000","high24h":"66000","low24h":"64000","vol24h":"1000","open24h":"64500","ts":"1700000000000"}]}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindTicker, m.Kind)
	assert.Equal(t, "BTC-USDT", m.InstID)
	assert.Equal(t, "65000", m.Ticker.Last)
}

func TestCodec_DecodeMessage_Books(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"arg":{"channel":"books","instId":"BTC-USDT"},"data":[{"asks":[["65001","1","0","2"]],"bids":[["65000","1","0","1"]],"ts":"1700000000000","seqId":1}]}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindOrderBook, m.Kind)
	assert.Equal(t, "BTC-USDT", m.InstID)
	require.Len(t, m.OrderBook.Bids, 1)
	assert.Equal(t, "65000", m.OrderBook.Bids[0][0])
}

func TestCodec_DecodeMessage_Candle(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"arg":{"channel":"candle1m","instId":"BTC-USDT"},"data":[["1700000000000","65000","65100","64900","65050","10","650000","650000","1"]]}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindKline, m.Kind)
	assert.Equal(t, "BTC-USDT", m.InstID)
	assert.Equal(t, "65000", m.Kline[1])
}

func TestCodec_DecodeMessage_SubscriptionAck(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"event":"subscribe","arg":{"channel":"tickers","instId":"BTC-USDT"}}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindSubscriptionAck, m.Kind)
}

func TestCodec_DecodeMessage_UnknownChannel(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"arg":{"channel":"bogus","instId":"BTC-USDT"},"data":[{}]}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindUnknown, m.Kind)
}
