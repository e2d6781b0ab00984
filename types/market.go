package types

import "github.com/shopspring/decimal"

// Market is an immutable snapshot of a tradable instrument's metadata.
type Market struct {
	Symbol         Symbol
	Status         MarketStatus
	BasePrecision  int32
	QuotePrecision int32
	MinQty         *decimal.Decimal
	MaxQty         *decimal.Decimal
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
}
