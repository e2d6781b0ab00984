package kernel

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// OKXSigner implements kernel.Signer for OKX's HMAC-SHA256 scheme: the
// preimage is ISO-8601-millisecond-timestamp + method + requestPath(+query)
// + body, base64-encoded, with the API passphrase carried as a fourth
// header alongside key/signature/timestamp.
type OKXSigner struct {
	apiKey     string
	secretKey  string
	passphrase string
}

// NewOKXSigner builds an OKX signer. passphrase is the account passphrase
// set at API-key creation time, distinct from apiKey/secretKey.
func NewOKXSigner(apiKey, secretKey, passphrase string) *OKXSigner {
	return &OKXSigner{apiKey: apiKey, secretKey: secretKey, passphrase: passphrase}
}

// isoTimestamp returns an OKX-compatible ISO-8601 timestamp with
// millisecond precision, e.g. "2020-12-08T09:08:57.715Z".
func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func (s *OKXSigner) Sign(method, endpoint, query string, body []byte, timestampMS int64) (map[string]string, []QueryParam, error) {
	ts := isoTimestamp(time.UnixMilli(timestampMS))

	requestPath := endpoint
	if query != "" {
		requestPath += "?" + query
	}

	preimage := ts + method + requestPath + string(body)

	mac := hmac.New(sha256.New, []byte(s.secretKey))
	mac.Write([]byte(preimage))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headers := map[string]string{
		"OK-ACCESS-KEY":        s.apiKey,
		"OK-ACCESS-SIGN":       signature,
		"OK-ACCESS-TIMESTAMP":  ts,
		"OK-ACCESS-PASSPHRASE": s.passphrase,
	}
	return headers, nil, nil
}
