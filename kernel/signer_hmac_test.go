package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// HMACSigner — fixture reproduction
// ============================================================

func TestHMACSigner_Binance_Fixture(t *testing.T) {
	signer := NewHMACSigner("apikey123", "mysecret", HMACVariantBinance)

	headers, params, err := signer.Sign("GET", "/api/v3/order", "symbol=BTCUSDT&side=BUY&type=LIMIT", nil, 1700000000000)
	require.NoError(t, err)

	assert.Equal(t, "apikey123", headers["X-MBX-APIKEY"])
	require.Len(t, params, 2)
	assert.Equal(t, "timestamp", params[0].Key)
	assert.Equal(t, "1700000000000", params[0].Value)
	assert.Equal(t, "signature", params[1].Key)
	assert.Equal(t, "875ddb09eceff49c61f6474a73396583f347568ad90e4b2c8e09b24f1bf852cc", params[1].Value)
}

func TestHMACSigner_Binance_EmptyQuery(t *testing.T) {
	signer := NewHMACSigner("apikey123", "mysecret", HMACVariantBinance)

	_, params, err := signer.Sign("GET", "/api/v3/account", "", nil, 1700000000000)
	require.NoError(t, err)

	// With no query, the preimage is just "timestamp=<ts>".
	assert.NotEmpty(t, params[1].Value)
}

func TestHMACSigner_Bybit_Fixture(t *testing.T) {
	signer := NewHMACSigner("apikey123", "mysecret", HMACVariantBybitV5)

	headers, params, err := signer.Sign("GET", "/v5/order/realtime", "symbol=BTCUSDT", nil, 1700000000000)
	require.NoError(t, err)

	assert.Nil(t, params, "bybit signs via headers only, no extra query params")
	assert.Equal(t, "apikey123", headers["X-BAPI-API-KEY"])
	assert.Equal(t, "1700000000000", headers["X-BAPI-TIMESTAMP"])
	assert.Equal(t, "5000", headers["X-BAPI-RECV-WINDOW"])
	assert.Equal(t, "7dd2db095b234a97d415b85e987b0fa51ce7d7274757442b71b33c5c523deded", headers["X-BAPI-SIGN"])
}

func TestHMACSigner_Bybit_PostSignsBodyNotQuery(t *testing.T) {
	signer := NewHMACSigner("apikey123", "mysecret", HMACVariantBybitV5)
	body := []byte(`{"symbol":"BTCUSDT"}`)

	headersQuery, _, err := signer.Sign("POST", "/v5/order/create", "should=not-be-used", body, 1700000000000)
	require.NoError(t, err)

	headersNoQuery, _, err := signer.Sign("POST", "/v5/order/create", "", body, 1700000000000)
	require.NoError(t, err)

	assert.Equal(t, headersNoQuery["X-BAPI-SIGN"], headersQuery["X-BAPI-SIGN"],
		"POST signs the raw body, so the query string must not affect the signature")
}

func TestHMACSigner_DifferentVariantsDiverge(t *testing.T) {
	binance := NewHMACSigner("apikey123", "mysecret", HMACVariantBinance)
	bybit := NewHMACSigner("apikey123", "mysecret", HMACVariantBybitV5)

	_, bnParams, err := binance.Sign("GET", "/x", "symbol=BTCUSDT", nil, 1700000000000)
	require.NoError(t, err)
	bybitHeaders, _, err := bybit.Sign("GET", "/x", "symbol=BTCUSDT", nil, 1700000000000)
	require.NoError(t, err)

	assert.NotEqual(t, bnParams[1].Value, bybitHeaders["X-BAPI-SIGN"])
}
