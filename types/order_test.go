package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// ============================================================
// OrderRequest.Validate — pre-flight checks
// ============================================================

func TestOrderRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     OrderRequest
		wantErr bool
	}{
		{
			name:    "market order with positive quantity is valid",
			req:     OrderRequest{Type: Market, Quantity: decimal.RequireFromString("1")},
			wantErr: false,
		},
		{
			name:    "limit order without price is rejected",
			req:     OrderRequest{Type: Limit, Quantity: decimal.RequireFromString("1")},
			wantErr: true,
		},
		{
			name:    "limit order with price is valid",
			req:     OrderRequest{Type: Limit, Quantity: decimal.RequireFromString("1"), Price: decPtr("100")},
			wantErr: false,
		},
		{
			name:    "stop loss without stop price is rejected",
			req:     OrderRequest{Type: StopLoss, Quantity: decimal.RequireFromString("1")},
			wantErr: true,
		},
		{
			name:    "stop loss limit without stop price is rejected",
			req:     OrderRequest{Type: StopLossLimit, Quantity: decimal.RequireFromString("1"), Price: decPtr("100")},
			wantErr: true,
		},
		{
			name: "stop loss with stop price is valid",
			req: OrderRequest{Type: StopLoss, Quantity: decimal.RequireFromString("1"),
				StopPrice: decPtr("90")},
			wantErr: false,
		},
		{
			name:    "zero quantity is rejected",
			req:     OrderRequest{Type: Market, Quantity: decimal.Zero},
			wantErr: true,
		},
		{
			name:    "negative quantity is rejected",
			req:     OrderRequest{Type: Market, Quantity: decimal.RequireFromString("-1")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ============================================================
// Enum round-trips
// ============================================================

func TestOrderSide_WireValues(t *testing.T) {
	assert.Equal(t, "BUY", string(Buy))
	assert.Equal(t, "SELL", string(Sell))
}

func TestOrderType_WireValues(t *testing.T) {
	assert.Equal(t, "MARKET", string(Market))
	assert.Equal(t, "LIMIT", string(Limit))
	assert.Equal(t, "STOP_LOSS", string(StopLoss))
	assert.Equal(t, "STOP_LOSS_LIMIT", string(StopLossLimit))
	assert.Equal(t, "TAKE_PROFIT", string(TakeProfit))
	assert.Equal(t, "TAKE_PROFIT_LIMIT", string(TakeProfitLimit))
}

func TestTimeInForce_WireValues(t *testing.T) {
	assert.Equal(t, "GTC", string(GTC))
	assert.Equal(t, "IOC", string(IOC))
	assert.Equal(t, "FOK", string(FOK))
}
