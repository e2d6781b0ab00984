package kernel

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"xconnect/xerrors"
)

// hyperliquidConnectionID is the EIP-712-flavored domain Hyperliquid's L1
// action envelope is signed against. It is constant across every action;
// only the action payload and nonce vary.
var hyperliquidConnectionID = map[string]any{
	"chain":             "Arbitrum",
	"chainId":           "0xa4b1",
	"name":              "Exchange",
	"verifyingContract": "0x0000000000000000000000000000000000000000",
	"version":           "1",
}

// HyperliquidSigner signs L1 actions for Hyperliquid's exchange endpoint.
// It is NOT an HTTP request signer in the Signer-interface sense:
// Hyperliquid authenticates the JSON action envelope itself, not the HTTP
// request that carries it, so callers use SignAction directly rather than
// going through Sign (which is a no-op satisfying the interface for
// adapters that compose both seams).
type HyperliquidSigner struct {
	privateKey *ecdsa.PrivateKey
	address    string

	mu        sync.Mutex
	lastNonce int64
}

// NewHyperliquidSigner derives the wallet address from a hex-encoded
// secp256k1 private key (with or without 0x prefix).
func NewHyperliquidSigner(privateKeyHex string) (*HyperliquidSigner, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(privateKeyHex))
	if err != nil {
		return nil, xerrors.New(xerrors.KindAuthError, "", fmt.Sprintf("invalid private key: %v", err))
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	return &HyperliquidSigner{privateKey: key, address: address}, nil
}

// Address returns the wallet address derived from the signer's key.
func (s *HyperliquidSigner) Address() string {
	return s.address
}

// NextNonce returns a monotonically increasing millisecond nonce. When
// the wall clock has not advanced since the last call (two actions
// submitted within the same millisecond), it advances the previous nonce
// by one instead of reusing it, since Hyperliquid rejects a repeated or
// non-increasing nonce.
func (s *HyperliquidSigner) NextNonce(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce := now.UnixMilli()
	if nonce <= s.lastNonce {
		nonce = s.lastNonce + 1
	}
	s.lastNonce = nonce
	return nonce
}

// SignedAction is the envelope Hyperliquid's /exchange endpoint expects:
// the original action, the nonce it was signed with, and the resulting
// signature.
type SignedAction struct {
	Action       any    `json:"action"`
	Nonce        int64  `json:"nonce"`
	Signature    string `json:"signature"`
	VaultAddress string `json:"vaultAddress,omitempty"`
}

// SignAction signs an L1 action for submission to Hyperliquid's exchange
// endpoint. vaultAddress is empty for actions placed on the signer's own
// account; when non-empty, the agent source marker flips from "b" to "a"
// per Hyperliquid's convention for vault-routed actions.
func (s *HyperliquidSigner) SignAction(action any, nonce int64, vaultAddress string, isMainnet bool) (SignedAction, error) {
	source := "b"
	if vaultAddress != "" {
		source = "a"
	}

	signingData := map[string]any{
		"action":       action,
		"nonce":        nonce,
		"connectionId": hyperliquidConnectionID,
		"agent":        map[string]any{"source": source},
		"isMainnet":    isMainnet,
	}

	encoded, err := json.Marshal(signingData)
	if err != nil {
		return SignedAction{}, xerrors.Wrap(err, "hyperliquid: failed to marshal signing data")
	}

	hash := crypto.Keccak256(encoded)

	sig, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return SignedAction{}, xerrors.New(xerrors.KindAuthError, "", fmt.Sprintf("failed to sign action: %v", err))
	}

	// go-ethereum's Sign returns a 65-byte [R || S || V] signature with V
	// in {0,1}; Hyperliquid expects the Ethereum convention V in {27,28}.
	sig[64] += 27

	return SignedAction{
		Action:       action,
		Nonce:        nonce,
		Signature:    "0x" + hex.EncodeToString(sig),
		VaultAddress: vaultAddress,
	}, nil
}

// Sign implements kernel.Signer as a no-op: Hyperliquid does not sign
// individual HTTP requests, only the action envelope via SignAction.
func (s *HyperliquidSigner) Sign(method, endpoint, query string, body []byte, timestampMS int64) (map[string]string, []QueryParam, error) {
	return map[string]string{}, nil, nil
}
