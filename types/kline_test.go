package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ============================================================
// Kline.Validate — OHLC invariant
// ============================================================

func TestKline_Validate(t *testing.T) {
	tests := []struct {
		name    string
		k       Kline
		wantErr bool
	}{
		{
			name:    "well-formed candle",
			k:       Kline{Open: d("100"), High: d("110"), Low: d("95"), Close: d("105"), OpenTime: 1000, CloseTime: 2000},
			wantErr: false,
		},
		{
			name:    "low above min(open,close) is invalid",
			k:       Kline{Open: d("100"), High: d("110"), Low: d("101"), Close: d("105"), OpenTime: 1000, CloseTime: 2000},
			wantErr: true,
		},
		{
			name:    "high below max(open,close) is invalid",
			k:       Kline{Open: d("100"), High: d("104"), Low: d("95"), Close: d("105"), OpenTime: 1000, CloseTime: 2000},
			wantErr: true,
		},
		{
			name:    "open_time equal to close_time is invalid",
			k:       Kline{Open: d("100"), High: d("110"), Low: d("95"), Close: d("105"), OpenTime: 2000, CloseTime: 2000},
			wantErr: true,
		},
		{
			name:    "open_time after close_time is invalid",
			k:       Kline{Open: d("100"), High: d("110"), Low: d("95"), Close: d("105"), OpenTime: 3000, CloseTime: 2000},
			wantErr: true,
		},
		{
			name:    "doji candle (open == close) at the extremes is valid",
			k:       Kline{Open: d("100"), High: d("100"), Low: d("100"), Close: d("100"), OpenTime: 1000, CloseTime: 2000},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.k.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ============================================================
// KlineInterval.Milliseconds
// ============================================================

func TestKlineInterval_Milliseconds(t *testing.T) {
	tests := []struct {
		interval KlineInterval
		want     int64
	}{
		{Interval1s, 1000},
		{Interval1m, 60_000},
		{Interval3m, 180_000},
		{Interval5m, 300_000},
		{Interval15m, 900_000},
		{Interval30m, 1_800_000},
		{Interval1h, 3_600_000},
		{Interval2h, 7_200_000},
		{Interval4h, 14_400_000},
		{Interval6h, 21_600_000},
		{Interval8h, 28_800_000},
		{Interval12h, 43_200_000},
		{Interval1d, 86_400_000},
		{Interval3d, 259_200_000},
		{Interval1w, 0},
		{Interval1M, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.interval.Milliseconds())
		})
	}
}
