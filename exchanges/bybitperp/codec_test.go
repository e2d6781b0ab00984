package bybitperp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Subscription grammar — golden table (identical to spot)
// ============================================================

func TestStreamGrammar(t *testing.T) {
	assert.Equal(t, "tickers.BTCUSDT", TickerStream("BTCUSDT"))
	assert.Equal(t, "orderbook.1.BTCUSDT", DepthStream("BTCUSDT", 0))
	assert.Equal(t, "orderbook.25.BTCUSDT", DepthStream("BTCUSDT", 25))
	assert.Equal(t, "publicTrade.BTCUSDT", TradeStream("BTCUSDT"))
	assert.Equal(t, "kline.5.BTCUSDT", KlineStream("BTCUSDT", "5"))
}

// ============================================================
// DecodeMessage — ticker carries funding fields absent on spot
// ============================================================

func TestCodec_DecodeMessage_TickerCarriesFundingFields(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"topic":"tickers.BTCUSDT","data":{"symbol":"BTCUSDT","lastPrice":"65000","markPrice":"65010","indexPrice":"65005","fundingRate":"0.0001","nextFundingTime":"1700000000000"}}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	require.Equal(t, KindTicker, m.Kind)
	assert.Equal(t, "65010", m.Ticker.MarkPrice)
	assert.Equal(t, "0.0001", m.Ticker.FundingRate)
}

func TestCodec_DecodeMessage_SubscriptionAck(t *testing.T) {
	c := &Codec{}
	raw := []byte(`{"success":true,"op":"subscribe"}`)

	msg, err := c.DecodeMessage(raw)
	require.NoError(t, err)
	m := msg.(*Message)
	assert.Equal(t, KindSubscriptionAck, m.Kind)
}
