package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================
// IsRetryable / IsAuthError
// ============================================================

func TestExchangeError_IsRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindNetworkError, true},
		{KindConnectionTimeout, true},
		{KindRateLimitExceeded, true},
		{KindServerError, true},
		{KindWebSocketClosed, true},
		{KindAuthError, false},
		{KindInvalidParameters, false},
		{KindAPIError, false},
		{KindNotSupported, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := New(tt.kind, "binance", "boom")
			assert.Equal(t, tt.want, err.IsRetryable())
		})
	}
}

func TestExchangeError_IsAuthError(t *testing.T) {
	assert.True(t, New(KindAuthError, "binance", "x").IsAuthError())
	assert.True(t, New(KindAuthenticationRequired, "binance", "x").IsAuthError())
	assert.False(t, New(KindNetworkError, "binance", "x").IsAuthError())
}

// ============================================================
// FromHTTPStatus — status-to-kind mapping
// ============================================================

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindAuthError},
		{403, KindAuthError},
		{429, KindRateLimitExceeded},
		{500, KindServerError},
		{503, KindServerError},
		{400, KindAPIError},
		{404, KindAPIError},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			err := FromHTTPStatus("bybit", tt.status, "body")
			assert.Equal(t, tt.want, err.Kind)
		})
	}
}

// ============================================================
// Wrap — context prefixing and Unwrap chain
// ============================================================

func TestWrap_NilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
}

func TestWrap_PreservesKindAndChainsCause(t *testing.T) {
	original := New(KindRateLimitExceeded, "okx", "too many requests")
	wrapped := Wrap(original, "placing order")

	exchErr, ok := wrapped.(*ExchangeError)
	a := assert.New(t)
	a.True(ok)
	a.Equal(KindRateLimitExceeded, exchErr.Kind)
	a.Contains(exchErr.Message, "placing order")
	a.Contains(exchErr.Message, "too many requests")
	a.True(errors.Is(wrapped, original))
}

func TestWrap_PlainErrorBecomesNetworkError(t *testing.T) {
	wrapped := Wrap(errors.New("dial tcp: timeout"), "connecting")

	exchErr, ok := wrapped.(*ExchangeError)
	assert := assert.New(t)
	assert.True(ok)
	assert.Equal(KindNetworkError, exchErr.Kind)
	assert.Contains(exchErr.Message, "connecting")
}

// ============================================================
// APIError / UserMessage
// ============================================================

func TestAPIError(t *testing.T) {
	err := APIError("paradex", 1001, "insufficient margin")
	assert.Equal(t, KindAPIError, err.Kind)
	assert.Equal(t, 1001, err.Code)
	assert.Contains(t, err.Error(), "1001")
	assert.Contains(t, err.Error(), "insufficient margin")
}

func TestUserMessage_NeverLeaksRawMessage(t *testing.T) {
	secretLookingMessage := "api key abc123secret rejected"
	err := New(KindAuthError, "binance", secretLookingMessage)
	assert.NotContains(t, err.UserMessage(), "abc123secret")
}
