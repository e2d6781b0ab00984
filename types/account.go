package types

import "github.com/shopspring/decimal"

// Balance is a single asset holding.
type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// PositionSide is the direction of a perpetual position.
type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
	PositionBoth  PositionSide = "BOTH"
)

// Position is a perpetual futures position. Amount is signed: positive for
// long, negative for short, when Side is PositionBoth (one-way mode).
type Position struct {
	Symbol           Symbol
	Side             PositionSide
	EntryPrice       decimal.Decimal
	Amount           decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	LiquidationPrice *decimal.Decimal
	Leverage         decimal.Decimal
}

// FundingRate describes a perpetual's funding state.
type FundingRate struct {
	Symbol          Symbol
	Rate            decimal.Decimal
	PreviousRate    *decimal.Decimal
	NextRate        *decimal.Decimal
	FundingTime     *int64
	NextFundingTime *int64
	MarkPrice       *decimal.Decimal
	IndexPrice      *decimal.Decimal
}
