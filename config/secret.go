// Package config holds per-venue connector configuration: API
// credentials, testnet selection, base-URL overrides, and optional .env
// file loading. Secret material never appears in a Stringer/log output
// path; it is exposed only by calling Expose() from inside a signer.
package config

// Secret wraps a credential so that accidental fmt/log/JSON paths cannot
// leak it. The plaintext is reachable only via Expose.
type Secret struct {
	value string
}

// NewSecret wraps a plaintext value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Expose returns the plaintext. Call this only at the point of use
// (building a signature, setting an auth header), never to log or store.
func (s Secret) Expose() string {
	return s.value
}

// IsEmpty reports whether no credential was configured.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}

// String implements fmt.Stringer with a redacted placeholder so secrets
// never leak through %v/%s formatting or zerolog field interpolation.
func (s Secret) String() string {
	if s.value == "" {
		return ""
	}
	return "[redacted]"
}

// MarshalJSON redacts the secret for any accidental JSON encoding path.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s.value == "" {
		return []byte(`""`), nil
	}
	return []byte(`"[redacted]"`), nil
}
