package kernel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xconnect/xerrors"
)

// ============================================================
// Signed-call fast-fail when no Signer is configured
// ============================================================

func TestRESTClient_SignedRequest_NoSignerIsAuthenticationRequired(t *testing.T) {
	c := NewRESTClient("testvenue", "http://127.0.0.1:1", time.Second, nil, RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond})

	_, err := c.SignedRequest(context.Background(), http.MethodGet, "/x", nil, nil, true)
	require.Error(t, err)
	exchErr, ok := err.(*xerrors.ExchangeError)
	require.True(t, ok)
	assert.Equal(t, xerrors.KindAuthenticationRequired, exchErr.Kind)
}

// ============================================================
// Retry/backoff bound computation
// ============================================================

func TestRESTClient_SignedRequest_RetriesRetryableStatusThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewRESTClient("testvenue", srv.URL, time.Second, nil, RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond})
	raw, err := c.SignedRequest(context.Background(), http.MethodGet, "/x", nil, nil, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRESTClient_SignedRequest_StopsRetryingAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewRESTClient("testvenue", srv.URL, time.Second, nil, RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond})
	_, err := c.SignedRequest(context.Background(), http.MethodGet, "/x", nil, nil, false)
	require.Error(t, err)
	exchErr, ok := err.(*xerrors.ExchangeError)
	require.True(t, ok)
	assert.Equal(t, xerrors.KindServerError, exchErr.Kind)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "MaxRetries=2 means 3 total attempts")
}

func TestRESTClient_SignedRequest_NonRetryableStatusFailsImmediately(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"msg":"bad request"}`))
	}))
	defer srv.Close()

	c := NewRESTClient("testvenue", srv.URL, time.Second, nil, RetryPolicy{MaxRetries: 5, BaseDelay: time.Millisecond})
	_, err := c.SignedRequest(context.Background(), http.MethodGet, "/x", nil, nil, false)
	require.Error(t, err)
	exchErr, ok := err.(*xerrors.ExchangeError)
	require.True(t, ok)
	assert.Equal(t, xerrors.KindAPIError, exchErr.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "non-retryable status must not retry")
}

func TestRESTClient_SignedRequest_BackoffDoublesPerAttempt(t *testing.T) {
	var timestamps []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timestamps = append(timestamps, time.Now())
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	base := 20 * time.Millisecond
	c := NewRESTClient("testvenue", srv.URL, time.Second, nil, RetryPolicy{MaxRetries: 2, BaseDelay: base})
	_, err := c.SignedRequest(context.Background(), http.MethodGet, "/x", nil, nil, false)
	require.Error(t, err)
	require.Len(t, timestamps, 3)

	firstGap := timestamps[1].Sub(timestamps[0])
	secondGap := timestamps[2].Sub(timestamps[1])
	assert.GreaterOrEqual(t, firstGap, base)
	assert.GreaterOrEqual(t, secondGap, 2*base)
}

func TestRESTClient_SignedRequest_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewRESTClient("testvenue", srv.URL, time.Second, nil, RetryPolicy{MaxRetries: 5, BaseDelay: 200 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.SignedRequest(ctx, http.MethodGet, "/x", nil, nil, false)
	require.Error(t, err)
	exchErr, ok := err.(*xerrors.ExchangeError)
	require.True(t, ok)
	assert.Equal(t, xerrors.KindNetworkError, exchErr.Kind)
}

// ============================================================
// Generic JSON helpers
// ============================================================

type testPayload struct {
	Value string `json:"value"`
}

func TestGetJSON_DecodesIntoGenericType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":"hello"}`))
	}))
	defer srv.Close()

	c := NewRESTClient("testvenue", srv.URL, time.Second, nil, RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond})
	result, err := GetJSON[testPayload](context.Background(), c, "/x", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Value)
}

func TestGetJSON_MalformedBodyIsDeserializationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewRESTClient("testvenue", srv.URL, time.Second, nil, RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond})
	_, err := GetJSON[testPayload](context.Background(), c, "/x", nil, false)
	require.Error(t, err)
	exchErr, ok := err.(*xerrors.ExchangeError)
	require.True(t, ok)
	assert.Equal(t, xerrors.KindDeserializationError, exchErr.Kind)
}

// ============================================================
// Signer wiring: headers and extra query params reach the request
// ============================================================

type fakeSigner struct{}

func (fakeSigner) Sign(method, endpoint, query string, body []byte, timestampMS int64) (map[string]string, []QueryParam, error) {
	return map[string]string{"X-Test-Auth": "signed"}, []QueryParam{{Key: "signature", Value: "abc123"}}, nil
}

func TestRESTClient_SignedRequest_AppliesSignerHeadersAndParams(t *testing.T) {
	var gotAuth, gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-Test-Auth")
		gotSig = r.URL.Query().Get("signature")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewRESTClient("testvenue", srv.URL, time.Second, fakeSigner{}, RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond})
	_, err := c.SignedRequest(context.Background(), http.MethodGet, "/x", nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "signed", gotAuth)
	assert.Equal(t, "abc123", gotSig)
}
