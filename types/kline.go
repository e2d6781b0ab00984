package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// KlineInterval is a finite enumeration of candle widths. Each venue codec
// renders it to its own wire token (see the per-venue codec.go files).
type KlineInterval string

const (
	Interval1s  KlineInterval = "1s"
	Interval1m  KlineInterval = "1m"
	Interval3m  KlineInterval = "3m"
	Interval5m  KlineInterval = "5m"
	Interval15m KlineInterval = "15m"
	Interval30m KlineInterval = "30m"
	Interval1h  KlineInterval = "1h"
	Interval2h  KlineInterval = "2h"
	Interval4h  KlineInterval = "4h"
	Interval6h  KlineInterval = "6h"
	Interval8h  KlineInterval = "8h"
	Interval12h KlineInterval = "12h"
	Interval1d  KlineInterval = "1d"
	Interval3d  KlineInterval = "3d"
	Interval1w  KlineInterval = "1w"
	Interval1M  KlineInterval = "1M"
)

// Milliseconds returns the interval's duration in milliseconds, or 0 for
// calendar-based intervals (1w, 1M) whose duration is not fixed.
func (k KlineInterval) Milliseconds() int64 {
	switch k {
	case Interval1s:
		return 1000
	case Interval1m:
		return 60_000
	case Interval3m:
		return 3 * 60_000
	case Interval5m:
		return 5 * 60_000
	case Interval15m:
		return 15 * 60_000
	case Interval30m:
		return 30 * 60_000
	case Interval1h:
		return 60 * 60_000
	case Interval2h:
		return 2 * 60 * 60_000
	case Interval4h:
		return 4 * 60 * 60_000
	case Interval6h:
		return 6 * 60 * 60_000
	case Interval8h:
		return 8 * 60 * 60_000
	case Interval12h:
		return 12 * 60 * 60_000
	case Interval1d:
		return 24 * 60 * 60_000
	case Interval3d:
		return 3 * 24 * 60 * 60_000
	default:
		return 0
	}
}

// Kline is an OHLCV candle. OpenTime/CloseTime are milliseconds since the
// Unix epoch. Final reports whether the bar is closed (no further updates
// will arrive for it over a WS stream).
type Kline struct {
	Symbol      Symbol
	Interval    KlineInterval
	OpenTime    int64
	CloseTime   int64
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      decimal.Decimal
	QuoteVolume decimal.Decimal
	Trades      int64
	Final       bool
}

// Validate enforces the kline invariant:
// low <= min(open,close) <= max(open,close) <= high, open_time < close_time.
func (k Kline) Validate() error {
	lo := decimal.Min(k.Open, k.Close)
	hi := decimal.Max(k.Open, k.Close)
	if k.Low.GreaterThan(lo) {
		return fmt.Errorf("types: kline invariant violated: low %s > min(open,close) %s", k.Low, lo)
	}
	if hi.GreaterThan(k.High) {
		return fmt.Errorf("types: kline invariant violated: max(open,close) %s > high %s", hi, k.High)
	}
	if k.OpenTime >= k.CloseTime {
		return fmt.Errorf("types: kline invariant violated: open_time %d >= close_time %d", k.OpenTime, k.CloseTime)
	}
	return nil
}
