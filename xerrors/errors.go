// Package xerrors defines the connector's error taxonomy. Every error
// surfaced across kernel and venue packages is a *ExchangeError so callers
// can branch on Kind, or ask IsRetryable/IsAuthError without caring which
// venue produced it.
package xerrors

import "fmt"

// Kind enumerates the domain-level error categories every venue adapter
// maps its failures into.
type Kind string

const (
	KindAuthError              Kind = "AuthError"
	KindAuthenticationRequired Kind = "AuthenticationRequired"
	KindAPIError               Kind = "ApiError"
	KindRateLimitExceeded      Kind = "RateLimitExceeded"
	KindNetworkError           Kind = "NetworkError"
	KindConnectionTimeout      Kind = "ConnectionTimeout"
	KindServerError            Kind = "ServerError"
	KindInvalidParameters      Kind = "InvalidParameters"
	KindWebSocketError         Kind = "WebSocketError"
	KindWebSocketClosed        Kind = "WebSocketClosed"
	KindSerializationError     Kind = "SerializationError"
	KindDeserializationError   Kind = "DeserializationError"
	KindInvalidResponseFormat  Kind = "InvalidResponseFormat"
	KindConfigError            Kind = "ConfigError"
	KindNotSupported           Kind = "NotSupported"
)

// ExchangeError is the single error type returned across the connector.
type ExchangeError struct {
	Kind    Kind
	Code    int    // venue-specific error code, when Kind == KindAPIError
	Message string
	Venue   string
	Cause   error
}

func (e *ExchangeError) Error() string {
	if e.Venue != "" {
		if e.Kind == KindAPIError {
			return fmt.Sprintf("%s: %s: api error %d: %s", e.Venue, e.Kind, e.Code, e.Message)
		}
		return fmt.Sprintf("%s: %s: %s", e.Venue, e.Kind, e.Message)
	}
	if e.Kind == KindAPIError {
		return fmt.Sprintf("%s: api error %d: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ExchangeError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the REST transport's retry loop should
// retry a request that failed with this error.
func (e *ExchangeError) IsRetryable() bool {
	switch e.Kind {
	case KindNetworkError, KindConnectionTimeout, KindRateLimitExceeded, KindServerError, KindWebSocketClosed:
		return true
	default:
		return false
	}
}

// IsAuthError reports whether this error reflects a credentials problem.
func (e *ExchangeError) IsAuthError() bool {
	switch e.Kind {
	case KindAuthError, KindAuthenticationRequired:
		return true
	default:
		return false
	}
}

// UserMessage returns a short, stable, secret-free message suitable for
// surfacing to a human or a dashboard.
func (e *ExchangeError) UserMessage() string {
	switch e.Kind {
	case KindAuthError, KindAuthenticationRequired:
		return "authentication failed - check credentials"
	case KindRateLimitExceeded:
		return "rate limit exceeded - please wait"
	case KindServerError:
		return "server error - try again later"
	case KindNetworkError:
		return "network error - check connection"
	case KindConnectionTimeout:
		return "connection timeout - try again"
	case KindWebSocketClosed:
		return "connection closed - reconnecting"
	case KindInvalidParameters:
		return "invalid parameters"
	case KindConfigError:
		return "configuration error"
	case KindSerializationError, KindDeserializationError, KindInvalidResponseFormat:
		return "data parsing error"
	case KindWebSocketError:
		return "websocket error"
	case KindAPIError:
		return "api error"
	case KindNotSupported:
		return "feature not supported"
	default:
		return "an error occurred"
	}
}

// New constructs an ExchangeError of the given kind.
func New(kind Kind, venue, message string) *ExchangeError {
	return &ExchangeError{Kind: kind, Venue: venue, Message: message}
}

// Wrap attaches context to an existing error, preserving it in the chain
// via Unwrap so errors.Is/errors.As keep working.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if ee, ok := err.(*ExchangeError); ok {
		return &ExchangeError{
			Kind:    ee.Kind,
			Code:    ee.Code,
			Message: context + ": " + ee.Message,
			Venue:   ee.Venue,
			Cause:   ee,
		}
	}
	return &ExchangeError{
		Kind:    KindNetworkError,
		Message: context + ": " + err.Error(),
		Cause:   err,
	}
}

// APIError builds a KindAPIError error carrying the venue's own code.
func APIError(venue string, code int, message string) *ExchangeError {
	return &ExchangeError{Kind: KindAPIError, Venue: venue, Code: code, Message: message}
}

// FromHTTPStatus maps an HTTP status code to the appropriate error kind.
func FromHTTPStatus(venue string, status int, body string) *ExchangeError {
	switch {
	case status == 401 || status == 403:
		return New(KindAuthError, venue, "authentication failed")
	case status == 429:
		return New(KindRateLimitExceeded, venue, "rate limit exceeded")
	case status >= 500 && status <= 599:
		return New(KindServerError, venue, body)
	default:
		return APIError(venue, status, body)
	}
}
