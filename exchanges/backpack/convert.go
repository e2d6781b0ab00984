package backpack

import (
	"github.com/shopspring/decimal"

	"xconnect/types"
)

// intervalToWire renders a KlineInterval to Backpack's native token, which
// matches the domain enum's own spelling, same as Binance.
func intervalToWire(i types.KlineInterval) string {
	return string(i)
}

func sideToWire(side types.OrderSide) string {
	if side == types.Sell {
		return "Ask"
	}
	return "Bid"
}

func orderTypeToWire(t types.OrderType) string {
	if t == types.Market {
		return "Market"
	}
	return "Limit"
}

func tifToWire(tif types.TimeInForce) string {
	switch tif {
	case types.IOC:
		return "IOC"
	case types.FOK:
		return "FOK"
	default:
		return "GTC"
	}
}

func wireToOrderSide(s string) types.OrderSide {
	if s == "Ask" {
		return types.Sell
	}
	return types.Buy
}

func positionSideFromQty(netQty decimal.Decimal) types.PositionSide {
	switch {
	case netQty.IsPositive():
		return types.PositionLong
	case netQty.IsNegative():
		return types.PositionShort
	default:
		return types.PositionBoth
	}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func symbolFromNative(native string) types.Symbol {
	return types.Symbol{Native: native}
}

func parseLevels(levels []level) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, types.PriceLevel{Price: mustDecimal(l[0]), Quantity: mustDecimal(l[1])})
	}
	return out
}

func formatDecimal(d decimal.Decimal) string { return d.String() }
