package hyperliquid

import (
	"github.com/shopspring/decimal"

	"xconnect/types"
)

// intervalToWire renders a KlineInterval to Hyperliquid's candle-snapshot
// token: every standard token matches the domain enum's own spelling.
func intervalToWire(i types.KlineInterval) string {
	return string(i)
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// coinToSymbol maps a Hyperliquid universe coin name (e.g. "BTC") to a
// Symbol; Hyperliquid perpetuals are always USD-margined, so Native
// reuses the bare coin name the API expects everywhere else.
func coinToSymbol(coin string) types.Symbol {
	return types.Symbol{Base: coin, Quote: "USD", Native: coin}
}

func positionSideFromSize(sz decimal.Decimal) types.PositionSide {
	switch {
	case sz.IsPositive():
		return types.PositionLong
	case sz.IsNegative():
		return types.PositionShort
	default:
		return types.PositionBoth
	}
}

func parseBookLevels(levels []bookLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, types.PriceLevel{Price: mustDecimal(l.Px), Quantity: mustDecimal(l.Sz)})
	}
	return out
}

func formatDecimal(d decimal.Decimal) string { return d.String() }
