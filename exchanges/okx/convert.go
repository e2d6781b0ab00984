package okx

import (
	"strings"

	"github.com/shopspring/decimal"

	"xconnect/types"
)

// intervalToWire renders a KlineInterval using OKX's bar token set, which
// matches the domain enum's lowercase spelling for sub-hour intervals but
// capitalizes the unit letter from 1h upward (e.g. "1H", "1D", "1W", "1M").
func intervalToWire(i types.KlineInterval) string {
	s := string(i)
	switch i {
	case types.Interval1h, types.Interval2h, types.Interval4h, types.Interval6h,
		types.Interval8h, types.Interval12h, types.Interval1d, types.Interval3d,
		types.Interval1w, types.Interval1M:
		return s[:len(s)-1] + strings.ToUpper(s[len(s)-1:])
	default:
		return s
	}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// symbolToInstID renders a Symbol as OKX's "<BASE>-<QUOTE>" instrument ID.
func symbolToInstID(sym types.Symbol) string {
	if sym.Native != "" {
		return sym.Native
	}
	return sym.Base + "-" + sym.Quote
}

// instIDToSymbol splits an OKX "<BASE>-<QUOTE>" instrument ID back into a
// Symbol; spot/swap instIDs both use the dash-separated form.
func instIDToSymbol(instID string) types.Symbol {
	base, quote, ok := strings.Cut(instID, "-")
	if !ok {
		return types.Symbol{Native: instID}
	}
	return types.Symbol{Base: base, Quote: quote, Native: instID}
}

func sideToWire(side types.OrderSide) string {
	if side == types.Sell {
		return "sell"
	}
	return "buy"
}

// orderTypeToWire mirrors convert_order_type_to_okx: OKX's ordType field
// is "market"/"limit"/"post_only"/"fok"/"ioc", with TimeInForce folded in
// for limit orders rather than carried as a separate field.
func orderTypeToWire(t types.OrderType, tif *types.TimeInForce) string {
	if t != types.Limit {
		return "market"
	}
	if tif == nil {
		return "limit"
	}
	switch *tif {
	case types.FOK:
		return "fok"
	case types.IOC:
		return "ioc"
	default:
		return "limit"
	}
}

func mapMarketState(state string) types.MarketStatus {
	switch state {
	case "live":
		return types.MarketStatusTrading
	case "suspend":
		return types.MarketStatusHalted
	case "preopen", "test":
		return types.MarketStatusBreak
	default:
		return types.MarketStatusUnknown
	}
}

func parseBookLevels(levels []bookLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, types.PriceLevel{Price: mustDecimal(l[0]), Quantity: mustDecimal(l[1])})
	}
	return out
}

func formatDecimal(d decimal.Decimal) string { return d.String() }
