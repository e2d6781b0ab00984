package binance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xconnect/config"
	"xconnect/types"
	"xconnect/xerrors"
)

func requireAuthRequired(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	exchErr, ok := err.(*xerrors.ExchangeError)
	require.True(t, ok)
	assert.Equal(t, xerrors.KindAuthenticationRequired, exchErr.Kind)
}

// ============================================================
// No-credentials fast-fail: trading/account calls never hit the network
// when the connector has no signer configured.
// ============================================================

func TestConnector_NoCredentials_FastFailsBeforeNetworkCall(t *testing.T) {
	c := NewConnector(config.New("", ""))
	require.False(t, c.HasCredentials())

	symbol := types.Symbol{Base: "BTC", Quote: "USDT", Native: "BTCUSDT"}
	qty := decimal.NewFromInt(1)

	t.Run("PlaceOrder", func(t *testing.T) {
		_, err := c.PlaceOrder(context.Background(), types.OrderRequest{
			Symbol: symbol, Side: types.Buy, Type: types.Market, Quantity: qty,
		})
		requireAuthRequired(t, err)
	})

	t.Run("CancelOrder", func(t *testing.T) {
		err := c.CancelOrder(context.Background(), symbol, "1")
		requireAuthRequired(t, err)
	})

	t.Run("GetAccountBalance", func(t *testing.T) {
		_, err := c.GetAccountBalance(context.Background())
		requireAuthRequired(t, err)
	})
}

func TestConnector_WithCredentials_HasCredentialsTrue(t *testing.T) {
	c := NewConnector(config.New("apikey", "secretkey"))
	assert.True(t, c.HasCredentials())
}

func TestConnector_PlaceOrder_ValidatesBeforeSigning(t *testing.T) {
	c := NewConnector(config.New("apikey", "secretkey"))

	_, err := c.PlaceOrder(context.Background(), types.OrderRequest{
		Symbol: types.Symbol{Base: "BTC", Quote: "USDT", Native: "BTCUSDT"},
		Side:   types.Buy,
		Type:   types.Limit,
		// Price intentionally omitted: Limit orders must be rejected by
		// Validate() before any request is built.
		Quantity: decimal.NewFromInt(1),
	})
	require.Error(t, err)
}

func TestConnector_GetPositions_EmptyForSpot(t *testing.T) {
	c := NewConnector(config.New("", ""))
	positions, err := c.GetPositions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestConnector_NameAndWebSocketURL(t *testing.T) {
	c := NewConnector(config.New("", ""))
	assert.Equal(t, "binance", c.Name())
	assert.NotEmpty(t, c.GetWebSocketURL())
}

func TestNewConnector_TestnetUsesTestnetBaseURL(t *testing.T) {
	c := NewConnector(config.New("", "").WithTestnet(true))
	assert.Equal(t, testnetRESTBase, c.rest.BaseURL)
}

func TestNewConnector_ExplicitBaseURLOverridesDefault(t *testing.T) {
	c := NewConnector(config.New("", "").WithBaseURL("https://custom.example"))
	assert.Equal(t, "https://custom.example", c.rest.BaseURL)
}
