package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================
// OrderBook.Validate — crossed book detection
// ============================================================

func TestOrderBook_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ob      OrderBook
		wantErr bool
	}{
		{
			name: "normal book, bid below ask",
			ob: OrderBook{
				Bids: []PriceLevel{{Price: d("100"), Quantity: d("1")}},
				Asks: []PriceLevel{{Price: d("101"), Quantity: d("1")}},
			},
			wantErr: false,
		},
		{
			name: "crossed book, bid equals ask",
			ob: OrderBook{
				Bids: []PriceLevel{{Price: d("100"), Quantity: d("1")}},
				Asks: []PriceLevel{{Price: d("100"), Quantity: d("1")}},
			},
			wantErr: true,
		},
		{
			name: "crossed book, bid above ask",
			ob: OrderBook{
				Bids: []PriceLevel{{Price: d("102"), Quantity: d("1")}},
				Asks: []PriceLevel{{Price: d("100"), Quantity: d("1")}},
			},
			wantErr: true,
		},
		{
			name:    "empty book is valid",
			ob:      OrderBook{},
			wantErr: false,
		},
		{
			name: "one-sided book is valid",
			ob: OrderBook{
				Bids: []PriceLevel{{Price: d("100"), Quantity: d("1")}},
			},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ob.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
