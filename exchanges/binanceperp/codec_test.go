package binanceperp

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
	assert.Equal(t, "btcusdt@depth10@100ms", DepthStream("BTCUSDT", 10))
	assert.Equal(t, "btcusdt@trade", TradeStream("BTCUSDT"))
	assert.Equal(t, "btcusdt@kline_5m", KlineStream("BTCUSDT", "5m"))
	assert.Equal(t, "btcusdt@markPrice", MarkPriceStream("BTCUSDT"))
}

// ============================================================
// DecodeMessage — mark price dispatch, the spot-codec difference
// ============================================================

func TestCodec_DecodeMessage_MarkPrice(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"stream":"btcusdt@markPrice","data":{"e":"markPriceUpdate","s":"BTCUSDT","p":"65000.1","i":"65001.0","r":"0.0001","T":1700000000000}}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)

	m, ok := msg.(*Message)
	require.True(t, ok)
	require.Equal(t, KindMarkPrice, m.Kind)
	require.NotNil(t, m.MarkPrice)
}

func TestCodec_DecodeMessage_SubscriptionAck(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"result":null,"id":1}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindSubscriptionAck, m.Kind)
}
