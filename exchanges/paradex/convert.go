package paradex

import (
	"github.com/shopspring/decimal"

	"xconnect/types"
)

// intervalToWire renders a KlineInterval in Paradex's token set, grounded
// on rest.rs's ParadexKlineInterval::to_paradex_format.
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

func sideToWire(side types.OrderSide) string {
	if side == types.Sell {
		return "SELL"
	}
	return "BUY"
}

// orderTypeToWire mirrors convert_order_request's OrderType match.
func orderTypeToWire(t types.OrderType) string {
	switch t {
	case types.Limit:
		return "LIMIT"
	case types.StopLoss:
		return "STOP_MARKET"
	case types.StopLossLimit:
		return "STOP_LIMIT"
	case types.TakeProfit:
		return "TAKE_PROFIT_MARKET"
	case types.TakeProfitLimit:
		return "TAKE_PROFIT_LIMIT"
	default:
		return "MARKET"
	}
}

func positionSideFromWire(side string) types.PositionSide {
	if side == "LONG" {
		return types.PositionLong
	}
	return types.PositionShort
}

func parseLevels(levels []level) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, types.PriceLevel{Price: mustDecimal(l.Price), Quantity: mustDecimal(l.Quantity)})
	}
	return out
}

func symbolFromNative(native string) types.Symbol {
	return types.Symbol{Native: native}
}

func formatDecimal(d decimal.Decimal) string { return d.String() }
