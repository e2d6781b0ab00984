package kernel

// QueryParam is a single extra query-string parameter a Signer wants
// appended to a request (e.g. Binance's timestamp/signature pair).
type QueryParam struct {
	Key   string
	Value string
}

// Signer computes per-request authentication material. Implementations
// must be stateless after construction so a single Signer can be shared
// by reference across concurrent REST calls without locking.
type Signer interface {
	// Sign returns the headers and extra query parameters a signed
	// request must carry. query is the already-encoded query string
	// (without a leading '?'); body is the raw request body (nil/empty
	// for GET/DELETE). timestampMS is the millisecond timestamp the
	// caller generated for this request.
	Sign(method, endpoint, query string, body []byte, timestampMS int64) (headers map[string]string, extraQuery []QueryParam, err error)
}
