package kernel

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strconv"

	"xconnect/xerrors"
)

// Ed25519Signer implements kernel.Signer for Backpack's Ed25519 request
// signing. The secret is a base64-encoded 32-byte seed.
type Ed25519Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	window     int64
}

// NewEd25519Signer parses a base64-encoded 32-byte seed into an Ed25519
// key pair.
func NewEd25519Signer(base64Seed string) (*Ed25519Signer, error) {
	seed, err := base64.StdEncoding.DecodeString(base64Seed)
	if err != nil {
		return nil, xerrors.New(xerrors.KindAuthError, "", fmt.Sprintf("invalid base64 secret: %v", err))
	}
	if len(seed) != ed25519.SeedSize {
		return nil, xerrors.New(xerrors.KindAuthError, "", fmt.Sprintf("secret key must be %d bytes, got %d", ed25519.SeedSize, len(seed)))
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	return &Ed25519Signer{privateKey: priv, publicKey: pub, window: 5000}, nil
}

// SignInstruction signs "instruction=<name>&<params>&timestamp=<ts>&window=<w>"
// and returns the base64 signature, per Backpack's documented scheme.
func (s *Ed25519Signer) SignInstruction(instruction, params string, timestampMS int64) string {
	signingString := fmt.Sprintf("instruction=%s", instruction)
	if params != "" {
		signingString += "&" + params
	}
	signingString += fmt.Sprintf("&timestamp=%d&window=%d", timestampMS, s.window)

	sig := ed25519.Sign(s.privateKey, []byte(signingString))
	return base64.StdEncoding.EncodeToString(sig)
}

// PublicKeyBase64 returns the base64-encoded public key used as the
// X-API-Key header value.
func (s *Ed25519Signer) PublicKeyBase64() string {
	return base64.StdEncoding.EncodeToString(s.publicKey)
}

// Sign implements kernel.Signer. Backpack has no single canonical
// "instruction" name derivable from an HTTP method/endpoint pair alone;
// callers that need Backpack's instruction-aware signature should call
// SignInstruction directly from the adapter, which knows the instruction
// name for the call it is making. Sign here treats endpoint as the
// instruction name, which matches Backpack's REST layout where each
// endpoint maps 1:1 to an instruction.
func (s *Ed25519Signer) Sign(method, endpoint, query string, body []byte, timestampMS int64) (map[string]string, []QueryParam, error) {
	signature := s.SignInstruction(endpoint, query, timestampMS)

	headers := map[string]string{
		"X-Timestamp": strconv.FormatInt(timestampMS, 10),
		"X-Window":    strconv.FormatInt(s.window, 10),
		"X-API-Key":   s.PublicKeyBase64(),
		"X-Signature": signature,
	}
	return headers, nil, nil
}
