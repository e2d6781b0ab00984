package hyperliquid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Subscription descriptor grammar — golden table
// ============================================================

func TestSubscriptionDescriptors(t *testing.T) {
	assert.JSONEq(t, `{"type":"allMids"}`, TickerSubscription("BTC"))
	assert.JSONEq(t, `{"type":"l2Book","coin":"BTC"}`, DepthSubscription("BTC"))
	assert.JSONEq(t, `{"type":"trades","coin":"BTC"}`, TradeSubscription("BTC"))
	assert.JSONEq(t, `{"type":"candle","coin":"BTC","interval":"1m"}`, KlineSubscription("BTC", "1m"))
}

// ============================================================
// EncodeSubscription — one message per descriptor, newline-joined
// ============================================================

func TestCodec_EncodeSubscription_NewlineJoinsMultipleDescriptors(t *testing.T) {
	c := &Codec{}
	frame, err := c.EncodeSubscription([]string{DepthSubscription("BTC"), TradeSubscription("ETH")})
	require.NoError(t, err)

	lines := strings.Split(string(frame), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"method":"subscribe","subscription":{"type":"l2Book","coin":"BTC"}}`, lines[0])
	assert.JSONEq(t, `{"method":"subscribe","subscription":{"type":"trades","coin":"ETH"}}`, lines[1])
}

func TestCodec_EncodeSubscription_RejectsInvalidDescriptor(t *testing.T) {
	c := &Codec{}
	_, err := c.EncodeSubscription([]string{"not-json"})
	assert.Error(t, err)
}

// ============================================================
// DecodeMessage — channel dispatch
// ============================================================

func TestCodec_DecodeMessage_L2Book(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"channel":"l2Book","data":{"coin":"BTC","levels":[[{"px":"65000","sz":"1"}],[{"px":"65001","sz":"2"}]],"time":1700000000000}}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindOrderBook, m.Kind)
	assert.Equal(t, "BTC", m.OrderBook.Coin)
}

func TestCodec_DecodeMessage_Trades_BatchedEntries(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"channel":"trades","data":[{"coin":"BTC","side":"B","px":"65000","sz":"0.5","time":1700000000000,"tid":1}]}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindTrade, m.Kind)
	require.Len(t, m.Trade.entries, 1)
	assert.Equal(t, "65000", m.Trade.entries[0].Px)
}

func TestCodec_DecodeMessage_SubscriptionResponseAck(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"channel":"subscriptionResponse","data":{}}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindSubscriptionAck, m.Kind)
}
