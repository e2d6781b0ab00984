package kernel

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// HMACVariant selects which venue's preimage construction an HMACSigner
// uses. Binance and Bybit both sign with HMAC-SHA256 but disagree on what
// exactly gets hashed and which headers carry the result.
type HMACVariant int

const (
	// HMACVariantBinance keys the concatenation "<query>&timestamp=<ts>"
	// and emits a hex digest under X-MBX-APIKEY / query params
	// timestamp+signature. GET and POST are identical.
	HMACVariantBinance HMACVariant = iota
	// HMACVariantBybitV5 signs "<ts><apiKey><recvWindow><payload>" where
	// payload is the sorted query string for GET or the raw JSON body for
	// POST, with a fixed 5000ms recv window.
	HMACVariantBybitV5
)

// HMACSigner implements kernel.Signer for Binance-family and Bybit V5
// authentication.
type HMACSigner struct {
	apiKey    string
	secretKey string
	variant   HMACVariant
}

// NewHMACSigner builds an HMAC-SHA256 signer for the given variant.
func NewHMACSigner(apiKey, secretKey string, variant HMACVariant) *HMACSigner {
	return &HMACSigner{apiKey: apiKey, secretKey: secretKey, variant: variant}
}

func hmacSHA256Hex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *HMACSigner) Sign(method, endpoint, query string, body []byte, timestampMS int64) (map[string]string, []QueryParam, error) {
	switch s.variant {
	case HMACVariantBybitV5:
		return s.signBybit(method, query, body, timestampMS)
	default:
		return s.signBinance(query, timestampMS)
	}
}

func (s *HMACSigner) signBinance(query string, timestampMS int64) (map[string]string, []QueryParam, error) {
	fullQuery := fmt.Sprintf("timestamp=%d", timestampMS)
	if query != "" {
		fullQuery = query + "&" + fullQuery
	}

	signature := hmacSHA256Hex(s.secretKey, []byte(fullQuery))

	headers := map[string]string{"X-MBX-APIKEY": s.apiKey}
	params := []QueryParam{
		{Key: "timestamp", Value: strconv.FormatInt(timestampMS, 10)},
		{Key: "signature", Value: signature},
	}
	return headers, params, nil
}

const bybitRecvWindow = "5000"

func (s *HMACSigner) signBybit(method, query string, body []byte, timestampMS int64) (map[string]string, []QueryParam, error) {
	ts := strconv.FormatInt(timestampMS, 10)

	payload := query
	if method == "POST" || method == "PUT" || method == "DELETE" {
		payload = string(body)
	}

	preimage := ts + s.apiKey + bybitRecvWindow + payload
	signature := hmacSHA256Hex(s.secretKey, []byte(preimage))

	headers := map[string]string{
		"X-BAPI-API-KEY":     s.apiKey,
		"X-BAPI-TIMESTAMP":   ts,
		"X-BAPI-RECV-WINDOW": bybitRecvWindow,
		"X-BAPI-SIGN":        signature,
	}
	return headers, nil, nil
}
