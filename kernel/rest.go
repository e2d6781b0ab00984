package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"xconnect/telemetry"
	"xconnect/xerrors"
)

// RetryPolicy controls REST retry/backoff. Delay grows as
// base*2^(attempt-1), capped by MaxRetries additional attempts beyond the
// first.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// RESTClient is the shared HTTP transport every venue adapter's REST
// surface sits on: one configured base URL, one *http.Client, one
// Signer, one retry policy.
type RESTClient struct {
	Venue      string
	BaseURL    string
	HTTPClient *http.Client
	Signer     Signer
	Retry      RetryPolicy
}

// NewRESTClient builds a RESTClient. signer may be nil for venues used
// only for unauthenticated (public market-data) calls.
func NewRESTClient(venue, baseURL string, timeout time.Duration, signer Signer, retry RetryPolicy) *RESTClient {
	return &RESTClient{
		Venue:      venue,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Signer:     signer,
		Retry:      retry,
	}
}

// GetJSON issues a GET and decodes the response body into T.
func GetJSON[T any](ctx context.Context, c *RESTClient, endpoint string, query url.Values, signed bool) (T, error) {
	return doJSON[T](ctx, c, http.MethodGet, endpoint, query, nil, signed)
}

// PostJSON issues a POST with a JSON-encoded body and decodes the
// response into T.
func PostJSON[T any](ctx context.Context, c *RESTClient, endpoint string, query url.Values, body any, signed bool) (T, error) {
	raw, err := marshalBody(body)
	if err != nil {
		var zero T
		return zero, err
	}
	return doJSON[T](ctx, c, http.MethodPost, endpoint, query, raw, signed)
}

// PutJSON issues a PUT with a JSON-encoded body and decodes the response
// into T.
func PutJSON[T any](ctx context.Context, c *RESTClient, endpoint string, query url.Values, body any, signed bool) (T, error) {
	raw, err := marshalBody(body)
	if err != nil {
		var zero T
		return zero, err
	}
	return doJSON[T](ctx, c, http.MethodPut, endpoint, query, raw, signed)
}

// DeleteJSON issues a DELETE and decodes the response into T.
func DeleteJSON[T any](ctx context.Context, c *RESTClient, endpoint string, query url.Values, signed bool) (T, error) {
	return doJSON[T](ctx, c, http.MethodDelete, endpoint, query, nil, signed)
}

func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, xerrors.Wrap(err, "kernel: failed to marshal request body")
	}
	return raw, nil
}

func doJSON[T any](ctx context.Context, c *RESTClient, method, endpoint string, query url.Values, body []byte, signed bool) (T, error) {
	var zero T

	raw, err := c.SignedRequest(ctx, method, endpoint, query, body, signed)
	if err != nil {
		return zero, err
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return zero, xerrors.New(xerrors.KindDeserializationError, "",
			fmt.Sprintf("%s: failed to decode response: %v", c.Venue, err))
	}
	return result, nil
}

// SignedRequest executes a REST call and returns the raw response body,
// for callers that need bytes rather than a decoded type. It applies the
// configured Signer (when signed is true), retries retryable failures
// with exponential backoff, and maps non-2xx responses to *xerrors.ExchangeError.
func (c *RESTClient) SignedRequest(ctx context.Context, method, endpoint string, query url.Values, body []byte, signed bool) ([]byte, error) {
	if signed && c.Signer == nil {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, "", c.Venue+": signed call requires credentials")
	}

	var lastErr error
	attempts := c.Retry.MaxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := c.doOnce(ctx, method, endpoint, query, body, signed)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		exchErr, ok := err.(*xerrors.ExchangeError)
		if !ok || !exchErr.IsRetryable() || attempt == attempts {
			return nil, err
		}

		telemetry.RESTRetriesTotal.WithLabelValues(c.Venue).Inc()

		delay := c.Retry.BaseDelay << uint(attempt-1)
		select {
		case <-ctx.Done():
			return nil, xerrors.Wrap(ctx.Err(), c.Venue+": request cancelled during retry backoff")
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

func (c *RESTClient) doOnce(ctx context.Context, method, endpoint string, query url.Values, body []byte, signed bool) ([]byte, error) {
	start := time.Now()

	timestampMS := time.Now().UnixMilli()
	headers := map[string]string{}

	if query == nil {
		query = url.Values{}
	}

	if signed {
		signHeaders, extraParams, err := c.Signer.Sign(method, endpoint, query.Encode(), body, timestampMS)
		if err != nil {
			return nil, xerrors.Wrap(err, c.Venue+": signing failed")
		}
		for k, v := range signHeaders {
			headers[k] = v
		}
		for _, p := range extraParams {
			query.Set(p.Key, p.Value)
		}
	}

	fullURL := c.BaseURL + endpoint
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, xerrors.Wrap(err, c.Venue+": failed to build request")
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	telemetry.RESTRequestDuration.WithLabelValues(c.Venue, method).Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.RESTRequestsTotal.WithLabelValues(c.Venue, method, "network_error").Inc()
		if ctx.Err() != nil {
			return nil, xerrors.New(xerrors.KindConnectionTimeout, "", c.Venue+": "+err.Error())
		}
		return nil, xerrors.New(xerrors.KindNetworkError, "", c.Venue+": "+err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.RESTRequestsTotal.WithLabelValues(c.Venue, method, "read_error").Inc()
		return nil, xerrors.New(xerrors.KindNetworkError, "", c.Venue+": failed to read response body: "+err.Error())
	}

	telemetry.RESTRequestsTotal.WithLabelValues(c.Venue, method, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, xerrors.FromHTTPStatus(c.Venue, resp.StatusCode, string(raw))
	}

	return raw, nil
}
