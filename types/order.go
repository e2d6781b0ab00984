package types

import (
	"github.com/shopspring/decimal"

	"xconnect/xerrors"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderType is the order execution style.
type OrderType string

const (
	Market          OrderType = "MARKET"
	Limit           OrderType = "LIMIT"
	StopLoss        OrderType = "STOP_LOSS"
	StopLossLimit   OrderType = "STOP_LOSS_LIMIT"
	TakeProfit      OrderType = "TAKE_PROFIT"
	TakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
)

// TimeInForce controls how long an order remains active.
type TimeInForce string

const (
	GTC TimeInForce = "GTC"
	IOC TimeInForce = "IOC"
	FOK TimeInForce = "FOK"
)

func (t OrderType) isStop() bool {
	switch t {
	case StopLoss, StopLossLimit, TakeProfit, TakeProfitLimit:
		return true
	default:
		return false
	}
}

// OrderRequest is the intent to place an order. Validate must be called
// (and is called by every adapter) before any network I/O: Limit requires
// a price, stop types require a stop price.
type OrderRequest struct {
	Symbol        Symbol
	Side          OrderSide
	Type          OrderType
	Quantity      decimal.Decimal
	Price         *decimal.Decimal
	TimeInForce   *TimeInForce
	StopPrice     *decimal.Decimal
	ClientOrderID string
}

// Validate enforces the local pre-flight checks every adapter must run
// before dispatching a place-order request over the network.
func (r OrderRequest) Validate() error {
	if r.Type == Limit && r.Price == nil {
		return xerrors.New(xerrors.KindInvalidParameters, "", "limit order requires a price")
	}
	if r.Type.isStop() && r.StopPrice == nil {
		return xerrors.New(xerrors.KindInvalidParameters, "", "stop order requires a stop price")
	}
	if r.Quantity.IsZero() || r.Quantity.IsNegative() {
		return xerrors.New(xerrors.KindInvalidParameters, "", "quantity must be positive")
	}
	return nil
}

// OrderResponse is the venue's acknowledgment of an order action.
type OrderResponse struct {
	OrderID       string
	ClientOrderID string
	Symbol        Symbol
	Side          OrderSide
	Type          OrderType
	Quantity      decimal.Decimal
	Price         *decimal.Decimal
	Status        string
	Timestamp     int64
}
