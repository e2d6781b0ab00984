package backpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Subscription grammar — golden table
// ============================================================

func TestStreamGrammar(t *testing.T) {
	assert.Equal(t, "ticker.BTC_USDC", TickerStream("BTC_USDC"))
	assert.Equal(t, "depth.BTC_USDC", DepthStream("BTC_USDC"))
	assert.Equal(t, "trade.BTC_USDC", TradeStream("BTC_USDC"))
	assert.Equal(t, "kline.1m.BTC_USDC", KlineStream("BTC_USDC", "1m"))
}

func TestCodec_EncodeSubscription(t *testing.T) {
	c := &Codec{}
	frame, err := c.EncodeSubscription([]string{"trade.BTC_USDC"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"SUBSCRIBE","params":["trade.BTC_USDC"],"id":1}`, string(frame))
}

// ============================================================
// DecodeMessage — event-type ("e") dispatch, unlike topic-prefix venues
// ============================================================

func TestCodec_DecodeMessage_Trade(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"e":"trade","s":"BTC_USDC","p":"65000","q":"0.1","t":1,"T":1700000000000,"m":true}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindTrade, m.Kind)
	assert.True(t, m.Trade.IsBuyerMM)
}

func TestCodec_DecodeMessage_SubscriptionAck(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"result":null,"id":1}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindSubscriptionAck, m.Kind)
}

func TestCodec_DecodeMessage_UnknownEvent(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"e":"bogus"}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindUnknown, m.Kind)
}
