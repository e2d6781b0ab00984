package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Subscription grammar — golden table
// ============================================================

func TestStreamGrammar(t *testing.T) {
	assert.Equal(t, "btcusdt@ticker", TickerStream("BTCUSDT"))
	assert.Equal(t, "btcusdt@depth@100ms", DepthStream("BTCUSDT", 0))
	assert.Equal(t, "btcusdt@depth20@100ms", DepthStream("BTCUSDT", 20))
	assert.Equal(t, "btcusdt@trade", TradeStream("BTCUSDT"))
	assert.Equal(t, "btcusdt@kline_1m", KlineStream("BTCUSDT", "1m"))
}

func TestCodec_EncodeSubscription(t *testing.T) {
	c := &Codec{}
	frame, err := c.EncodeSubscription([]string{"btcusdt@trade", "ethusdt@trade"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"SUBSCRIBE","params":["btcusdt@trade","ethusdt@trade"],"id":1}`, string(frame))
}

func TestCodec_EncodeSubscription_IncrementsID(t *testing.T) {
	c := &Codec{}
	f1, err := c.EncodeSubscription([]string{"btcusdt@trade"})
	require.NoError(t, err)
	f2, err := c.EncodeUnsubscription([]string{"btcusdt@trade"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"SUBSCRIBE","params":["btcusdt@trade"],"id":1}`, string(f1))
	assert.JSONEq(t, `{"method":"UNSUBSCRIBE","params":["btcusdt@trade"],"id":2}`, string(f2))
}

// ============================================================
// DecodeMessage — combined-stream dispatch
// ============================================================

func TestCodec_DecodeMessage_Ticker(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"stream":"btcusdt@ticker","data":{"e":"24hrTicker","s":"BTCUSDT","c":"65000.00","h":"66000.00","l":"64000.00","v":"1000.5","p":"500.00","P":"0.77"}}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)

	m, ok := msg.(*Message)
	require.True(t, ok)
	require.Equal(t, KindTicker, m.Kind)
	assert.Equal(t, "BTCUSDT", m.Ticker.Symbol)
	assert.Equal(t, "65000.00", m.Ticker.LastPrice)
}

func TestCodec_DecodeMessage_Depth(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"stream":"btcusdt@depth@100ms","data":{"e":"depthUpdate","s":"BTCUSDT","u":123,"b":[["100.0","1.0"]],"a":[["101.0","2.0"]]}}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindOrderBook, m.Kind)
	assert.Equal(t, int64(123), m.OrderBook.FinalUpdateID)
}

func TestCodec_DecodeMessage_SubscriptionAck(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"result":null,"id":1}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindSubscriptionAck, m.Kind)
}

func TestCodec_DecodeMessage_UnknownEventIsUnknownKind(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"e":"somethingElse"}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindUnknown, m.Kind)
}

func TestCodec_DecodeMessage_GarbageBytesDoNotError(t *testing.T) {
	c := &Codec{}
	msg, err := c.DecodeMessage([]byte("not json"))
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindUnknown, m.Kind)
}
