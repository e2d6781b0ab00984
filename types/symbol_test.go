package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================
// Symbol — native-string identity
// ============================================================

func TestSymbol_String(t *testing.T) {
	sym := Symbol{Base: "BTC", Quote: "USDT", Native: "BTCUSDT"}
	assert.Equal(t, "BTCUSDT", sym.String())
}

func TestSymbol_Equal(t *testing.T) {
	a := Symbol{Base: "BTC", Quote: "USDT", Native: "BTCUSDT"}
	b := Symbol{Base: "btc", Quote: "usdt", Native: "BTCUSDT"} // informational fields differ, native matches
	c := Symbol{Base: "BTC", Quote: "USDT", Native: "BTC-USDT"}

	assert.True(t, a.Equal(b), "Equal compares by native string only")
	assert.False(t, a.Equal(c))
}

func TestMarketStatus_WireValues(t *testing.T) {
	assert.Equal(t, "TRADING", string(MarketStatusTrading))
	assert.Equal(t, "HALTED", string(MarketStatusHalted))
	assert.Equal(t, "BREAK", string(MarketStatusBreak))
	assert.Equal(t, "UNKNOWN", string(MarketStatusUnknown))
}
