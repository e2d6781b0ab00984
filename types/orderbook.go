package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single (price, quantity) row of an order book side.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook holds bid/ask levels for a Symbol. Bids are ordered by
// descending price, asks by ascending price. LastUpdateID is
// monotonically non-decreasing across updates for the same symbol.
type OrderBook struct {
	Symbol       Symbol
	Bids         []PriceLevel
	Asks         []PriceLevel
	LastUpdateID int64
}

// Validate checks that bids and asks do not cross.
func (ob OrderBook) Validate() error {
	if len(ob.Bids) > 0 && len(ob.Asks) > 0 {
		bestBid := ob.Bids[0].Price
		bestAsk := ob.Asks[0].Price
		if bestBid.GreaterThanOrEqual(bestAsk) {
			return fmt.Errorf("types: order book crossed: best bid %s >= best ask %s", bestBid, bestAsk)
		}
	}
	return nil
}

// Ticker is a 24-hour summary for a Symbol.
type Ticker struct {
	Symbol             Symbol
	LastPrice          decimal.Decimal
	HighPrice          decimal.Decimal
	LowPrice           decimal.Decimal
	Volume             decimal.Decimal
	PriceChange        decimal.Decimal
	PriceChangePercent decimal.Decimal
	OpenTime           int64
	CloseTime          int64
	Trades             int64
}

// Trade is a single execution.
type Trade struct {
	Symbol       Symbol
	TradeID      string
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	Timestamp    int64
	IsBuyerMaker bool
}
