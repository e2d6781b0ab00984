package binance

import (
	"strconv"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"xconnect/types"
)

// The go-binance/v2 SDK's exported side/type/TIF vocabulary is reused
// here purely as the wire-string vocabulary for request translation;
// REST execution itself goes through kernel.RESTClient so retries,
// signing and telemetry stay uniform across venues (see DESIGN.md).

func sideToWire(side types.OrderSide) gobinance.SideType {
	if side == types.Sell {
		return gobinance.SideTypeSell
	}
	return gobinance.SideTypeBuy
}

func orderTypeToWire(t types.OrderType) gobinance.OrderType {
	switch t {
	case types.Market:
		return gobinance.OrderTypeMarket
	case types.StopLoss:
		return gobinance.OrderTypeStopLoss
	case types.StopLossLimit:
		return gobinance.OrderTypeStopLossLimit
	case types.TakeProfit:
		return gobinance.OrderTypeTakeProfit
	case types.TakeProfitLimit:
		return gobinance.OrderTypeTakeProfitLimit
	default:
		return gobinance.OrderTypeLimit
	}
}

func tifToWire(tif types.TimeInForce) gobinance.TimeInForceType {
	switch tif {
	case types.IOC:
		return gobinance.TimeInForceTypeIOC
	case types.FOK:
		return gobinance.TimeInForceTypeFOK
	default:
		return gobinance.TimeInForceTypeGTC
	}
}

func wireToOrderSide(s string) types.OrderSide {
	if s == string(gobinance.SideTypeSell) {
		return types.Sell
	}
	return types.Buy
}

func wireToOrderType(s string) types.OrderType {
	switch gobinance.OrderType(s) {
	case gobinance.OrderTypeMarket:
		return types.Market
	case gobinance.OrderTypeStopLoss:
		return types.StopLoss
	case gobinance.OrderTypeStopLossLimit:
		return types.StopLossLimit
	case gobinance.OrderTypeTakeProfit:
		return types.TakeProfit
	case gobinance.OrderTypeTakeProfitLimit:
		return types.TakeProfitLimit
	default:
		return types.Limit
	}
}

// intervalToWire renders a KlineInterval to Binance's native token, which
// (unlike Bybit/OKX) matches the domain enum's own spelling for every
// value except the calendar ones, which Binance also spells the same way.
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

func symbolFromNative(native string) types.Symbol {
	// Binance exchangeInfo carries base/quote separately; this fallback
	// path (used for WS events, which carry only the combined symbol) is
	// best-effort and does not attempt to re-derive base/quote.
	return types.Symbol{Native: native}
}

func parseLevels(levels []depthLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, types.PriceLevel{
			Price:    mustDecimal(l[0]),
			Quantity: mustDecimal(l[1]),
		})
	}
	return out
}

func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
