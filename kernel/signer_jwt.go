package kernel

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"

	"xconnect/xerrors"
)

// paradexJWTExpiry is the fixed token lifetime Paradex enforces: tokens
// older than 5 minutes are rejected and must be re-issued.
const paradexJWTExpiry = 5 * time.Minute

// JWTSigner implements kernel.Signer for Paradex, which authenticates not
// individual requests but a bearer token issued once and attached as an
// Authorization header. The token's subject is the Ethereum-style wallet
// address derived from the configured secp256k1 private key; the token itself is signed
// HS256 with a key Paradex issues out of band (the "onboarding" secret),
// not with the wallet's private key.
type JWTSigner struct {
	privateKeyHex string
	jwtSecret     []byte
	address       string
}

// NewJWTSigner derives the wallet address from privateKeyHex (a hex ECDSA
// private key, with or without 0x prefix) and stores jwtSecret, the
// HS256 signing key Paradex assigns during onboarding.
func NewJWTSigner(privateKeyHex string, jwtSecret []byte) (*JWTSigner, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(privateKeyHex))
	if err != nil {
		return nil, xerrors.New(xerrors.KindAuthError, "", fmt.Sprintf("invalid private key: %v", err))
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	return &JWTSigner{privateKeyHex: privateKeyHex, jwtSecret: jwtSecret, address: address}, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Address returns the wallet address this signer authenticates as.
func (s *JWTSigner) Address() string {
	return s.address
}

// IssueToken mints a fresh HS256 bearer token valid for paradexJWTExpiry,
// subject set to the wallet address, suitable for the Authorization
// header of subsequent signed requests.
func (s *JWTSigner) IssueToken(issuedAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   s.address,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(paradexJWTExpiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", xerrors.Wrap(err, "paradex: failed to sign JWT")
	}
	return signed, nil
}

// Sign implements kernel.Signer by issuing a fresh bearer token on every
// call and attaching it as Authorization. Request bodies and queries are
// not signed, and the Paradex adapter attaches no per-order signature to
// order payloads.
func (s *JWTSigner) Sign(method, endpoint, query string, body []byte, timestampMS int64) (map[string]string, []QueryParam, error) {
	token, err := s.IssueToken(time.UnixMilli(timestampMS))
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}
	return headers, nil, nil
}
