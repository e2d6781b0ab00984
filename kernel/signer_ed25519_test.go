package kernel

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSeedBase64(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(make([]byte, ed25519.SeedSize))
}

// ============================================================
// Ed25519Signer
// ============================================================

func TestNewEd25519Signer_RejectsBadBase64(t *testing.T) {
	_, err := NewEd25519Signer("not-base64!!!")
	assert.Error(t, err)
}

func TestNewEd25519Signer_RejectsWrongSeedLength(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	_, err := NewEd25519Signer(short)
	assert.Error(t, err)
}

func TestEd25519Signer_SignatureVerifies(t *testing.T) {
	signer, err := NewEd25519Signer(validSeedBase64(t))
	require.NoError(t, err)

	headers, params, err := signer.Sign("POST", "orderExecute", "symbol=BTCUSDT", nil, 1700000000000)
	require.NoError(t, err)
	assert.Nil(t, params, "ed25519 signing is header-only, no query params added")

	sig, err := base64.StdEncoding.DecodeString(headers["X-Signature"])
	require.NoError(t, err)

	pub, err := base64.StdEncoding.DecodeString(headers["X-API-Key"])
	require.NoError(t, err)

	signingString := "instruction=orderExecute&symbol=BTCUSDT&timestamp=1700000000000&window=5000"
	assert.True(t, ed25519.Verify(pub, []byte(signingString), sig))
}

func TestEd25519Signer_DifferentTimestampsDiverge(t *testing.T) {
	signer, err := NewEd25519Signer(validSeedBase64(t))
	require.NoError(t, err)

	h1, _, _ := signer.Sign("POST", "orderExecute", "", nil, 1700000000000)
	h2, _, _ := signer.Sign("POST", "orderExecute", "", nil, 1700000000001)

	assert.NotEqual(t, h1["X-Signature"], h2["X-Signature"])
}

func TestEd25519Signer_SignInstruction_EmptyParamsChangesSignature(t *testing.T) {
	signer, err := NewEd25519Signer(validSeedBase64(t))
	require.NoError(t, err)

	sigWithParams := signer.SignInstruction("balanceQuery", "asset=USDC", 1700000000000)
	sigNoParams := signer.SignInstruction("balanceQuery", "", 1700000000000)

	assert.NotEqual(t, sigWithParams, sigNoParams)
}
