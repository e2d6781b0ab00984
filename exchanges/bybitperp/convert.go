package bybitperp

import (
	"github.com/shopspring/decimal"

	"xconnect/types"
)

func intervalToWire(i types.KlineInterval) string {
	switch i {
	case types.Interval1s, types.Interval1m:
		return "1"
	case types.Interval3m:
		return "3"
	case types.Interval5m:
		return "5"
	case types.Interval15m:
		return "15"
	case types.Interval30m:
		return "30"
	case types.Interval1h:
		return "60"
	case types.Interval2h:
		return "120"
	case types.Interval4h:
		return "240"
	case types.Interval6h:
		return "360"
	case types.Interval8h:
		return "480"
	case types.Interval12h:
		return "720"
	case types.Interval1d, types.Interval3d:
		return "D"
	case types.Interval1w:
		return "W"
	case types.Interval1M:
		return "M"
	default:
		return "60"
	}
}

func sideToWire(side types.OrderSide) string {
	if side == types.Sell {
		return "Sell"
	}
	return "Buy"
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
	if s == "Sell" {
		return types.Sell
	}
	return types.Buy
}

func wireToOrderType(s string) types.OrderType {
	if s == "Market" {
		return types.Market
	}
	return types.Limit
}

func positionSideFromWire(side string) types.PositionSide {
	switch side {
	case "Sell":
		return types.PositionShort
	case "Buy":
		return types.PositionLong
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

func mustInt64(s string) int64 {
	d := mustDecimal(s)
	return d.IntPart()
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
