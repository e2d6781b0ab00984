package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"xconnect/xerrors"
)

// ExchangeConfig is the per-venue configuration every adapter builder
// accepts. Secret material is held in a Secret wrapper.
type ExchangeConfig struct {
	APIKey     string
	SecretKey  Secret
	// Passphrase carries a venue's secondary credential: OKX's API
	// passphrase header value, or Paradex's onboarding JWT signing
	// secret. Empty for every other venue.
	Passphrase Secret
	Testnet    bool
	BaseURL    string // overrides the venue's default base URL when non-empty

	MaxRetries    int
	RetryBaseWait time.Duration
	Timeout       time.Duration
}

// DefaultRetryPolicy returns the module-wide default: 3 retries, ~100ms
// base delay, 30s request timeout.
func DefaultRetryPolicy() (maxRetries int, baseWait, timeout time.Duration) {
	return 3, 100 * time.Millisecond, 30 * time.Second
}

// New builds an ExchangeConfig with the default retry policy.
func New(apiKey, secretKey string) ExchangeConfig {
	maxRetries, baseWait, timeout := DefaultRetryPolicy()
	return ExchangeConfig{
		APIKey:        apiKey,
		SecretKey:     NewSecret(secretKey),
		MaxRetries:    maxRetries,
		RetryBaseWait: baseWait,
		Timeout:       timeout,
	}
}

// WithTestnet is a builder-style setter, mirroring the original's
// fluent ExchangeConfig::testnet.
func (c ExchangeConfig) WithTestnet(testnet bool) ExchangeConfig {
	c.Testnet = testnet
	return c
}

// WithBaseURL overrides the adapter's default base URL.
func (c ExchangeConfig) WithBaseURL(url string) ExchangeConfig {
	c.BaseURL = url
	return c
}

// WithPassphrase sets the OKX-style third credential.
func (c ExchangeConfig) WithPassphrase(passphrase string) ExchangeConfig {
	c.Passphrase = NewSecret(passphrase)
	return c
}

// HasCredentials reports whether enough material is present to sign
// authenticated requests.
func (c ExchangeConfig) HasCredentials() bool {
	return c.APIKey != "" && !c.SecretKey.IsEmpty()
}

// LoadDotenv loads a .env file into the process environment. A missing
// or unreadable file is returned as an error. Consumers opt into this explicitly; it is never called implicitly by
// FromEnv so library use inside an already-configured process is
// unaffected.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil {
		return xerrors.Wrap(err, "config: failed to load "+path)
	}
	return nil
}

// FromEnv builds an ExchangeConfig by reading <prefix>_API_KEY,
// <prefix>_SECRET_KEY, <prefix>_PASSPHRASE, <prefix>_TESTNET and
// <prefix>_BASE_URL from the process environment. prefix is the
// venue's env-var prefix, e.g. "BINANCE" or "HYPERLIQUID".
func FromEnv(prefix string) (ExchangeConfig, error) {
	apiKey := os.Getenv(prefix + "_API_KEY")
	secretKey := os.Getenv(prefix + "_SECRET_KEY")

	cfg := New(apiKey, secretKey)

	if passphrase := os.Getenv(prefix + "_PASSPHRASE"); passphrase != "" {
		cfg = cfg.WithPassphrase(passphrase)
	}

	if testnetStr := os.Getenv(prefix + "_TESTNET"); testnetStr != "" {
		testnet, err := strconv.ParseBool(testnetStr)
		if err != nil {
			return ExchangeConfig{}, xerrors.New(xerrors.KindConfigError, "",
				fmt.Sprintf("%s_TESTNET: invalid boolean %q", prefix, testnetStr))
		}
		cfg = cfg.WithTestnet(testnet)
	}

	if baseURL := os.Getenv(prefix + "_BASE_URL"); baseURL != "" {
		cfg = cfg.WithBaseURL(baseURL)
	}

	return cfg, nil
}
