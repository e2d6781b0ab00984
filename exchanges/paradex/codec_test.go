package paradex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Subscription grammar — golden table
// ============================================================

func TestStreamGrammar(t *testing.T) {
	assert.Equal(t, "ticker@BTC-USD-PERP", TickerStream("BTC-USD-PERP"))
	assert.Equal(t, "depth@BTC-USD-PERP", DepthStream("BTC-USD-PERP", 0))
	assert.Equal(t, "depth20@BTC-USD-PERP", DepthStream("BTC-USD-PERP", 20))
	assert.Equal(t, "trade@BTC-USD-PERP", TradeStream("BTC-USD-PERP"))
	assert.Equal(t, "kline_1m@BTC-USD-PERP", KlineStream("BTC-USD-PERP", "1m"))
}

func TestCodec_EncodeSubscription(t *testing.T) {
	c := &Codec{}
	frame, err := c.EncodeSubscription([]string{"ticker@BTC-USD-PERP"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"SUBSCRIBE","params":["ticker@BTC-USD-PERP"],"id":1}`, string(frame))
}

// ============================================================
// DecodeMessage — channel-prefix dispatch
// ============================================================

func TestCodec_DecodeMessage_Trade(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"channel":"trade@BTC-USD-PERP","data":{"symbol":"BTC-USD-PERP","price":"65000","quantity":"0.1","trade_id":1,"timestamp":1700000000000,"is_buyer_maker":false}}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindTrade, m.Kind)
	assert.Equal(t, "65000", m.Trade.Price)
}

func TestCodec_DecodeMessage_Depth_MatchesDepthWithLevelSuffix(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"channel":"depth20@BTC-USD-PERP","data":{"symbol":"BTC-USD-PERP","bids":[{"price":"100","quantity":"1"}],"asks":[],"update_id":1}}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindOrderBook, m.Kind)
}

func TestCodec_DecodeMessage_NoChannelIsAck(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"id":1,"result":true}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindSubscriptionAck, m.Kind)
}
