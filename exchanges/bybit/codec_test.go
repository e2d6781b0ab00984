package bybit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Subscription grammar — golden table
// ============================================================

func TestStreamGrammar(t *testing.T) {
	assert.Equal(t, "tickers.BTCUSDT", TickerStream("BTCUSDT"))
	assert.Equal(t, "orderbook.1.BTCUSDT", DepthStream("BTCUSDT", 0))
	assert.Equal(t, "orderbook.50.BTCUSDT", DepthStream("BTCUSDT", 50))
	assert.Equal(t, "publicTrade.BTCUSDT", TradeStream("BTCUSDT"))
	assert.Equal(t, "kline.1.BTCUSDT", KlineStream("BTCUSDT", "1"))
}

func TestCodec_EncodeSubscription(t *testing.T) {
	c := &Codec{}
	frame, err := c.EncodeSubscription([]string{"tickers.BTCUSDT"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"subscribe","args":["tickers.BTCUSDT"]}`, string(frame))
}

// ============================================================
// DecodeMessage — topic-prefix dispatch
// ============================================================

func TestCodec_DecodeMessage_Ticker(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"topic":"tickers.BTCUSDT","type":"snapshot","data":{"symbol":"BTCUSDT","lastPrice":"65000"}}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindTicker, m.Kind)
	assert.Equal(t, "BTCUSDT", m.Ticker.Symbol)
}

func TestCodec_DecodeMessage_Trade_BatchedEntries(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"topic":"publicTrade.BTCUSDT","type":"snapshot","data":[{"s":"BTCUSDT","p":"65000","v":"0.1","S":"Buy","T":1700000000000,"i":"123"}]}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindTrade, m.Kind)
	require.Len(t, m.Trade.entries, 1)
	assert.Equal(t, "65000", m.Trade.entries[0].Price)
}

func TestCodec_DecodeMessage_SubscriptionAck(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"success":true,"ret_msg":"","op":"subscribe"}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindSubscriptionAck, m.Kind)
}

func TestCodec_DecodeMessage_UnknownTopic(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"topic":"somethingElse.BTCUSDT","data":{}}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindUnknown, m.Kind)
}
