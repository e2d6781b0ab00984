package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// New / builders
// ============================================================

func TestNew_AppliesDefaultRetryPolicy(t *testing.T) {
	cfg := New("key", "secret")
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBaseWait)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "secret", cfg.SecretKey.Expose())
}

func TestExchangeConfig_Builders(t *testing.T) {
	cfg := New("key", "secret").WithTestnet(true).WithBaseURL("https://example.test").WithPassphrase("pp")

	assert.True(t, cfg.Testnet)
	assert.Equal(t, "https://example.test", cfg.BaseURL)
	assert.Equal(t, "pp", cfg.Passphrase.Expose())
}

func TestExchangeConfig_BuildersDoNotMutateReceiver(t *testing.T) {
	base := New("key", "secret")
	_ = base.WithTestnet(true)
	assert.False(t, base.Testnet, "WithTestnet must return a copy, not mutate in place")
}

// ============================================================
// HasCredentials — no-credentials fast-fail property
// ============================================================

func TestExchangeConfig_HasCredentials(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		secret string
		want   bool
	}{
		{"both present", "key", "secret", true},
		{"missing api key", "", "secret", false},
		{"missing secret", "key", "", false},
		{"both missing", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New(tt.apiKey, tt.secret)
			assert.Equal(t, tt.want, cfg.HasCredentials())
		})
	}
}

// ============================================================
// FromEnv
// ============================================================

func TestFromEnv_ReadsPrefixedVariables(t *testing.T) {
	t.Setenv("TESTVENUE_API_KEY", "envkey")
	t.Setenv("TESTVENUE_SECRET_KEY", "envsecret")
	t.Setenv("TESTVENUE_PASSPHRASE", "envpp")
	t.Setenv("TESTVENUE_TESTNET", "true")
	t.Setenv("TESTVENUE_BASE_URL", "https://testnet.example")

	cfg, err := FromEnv("TESTVENUE")
	require.NoError(t, err)
	assert.Equal(t, "envkey", cfg.APIKey)
	assert.Equal(t, "envsecret", cfg.SecretKey.Expose())
	assert.Equal(t, "envpp", cfg.Passphrase.Expose())
	assert.True(t, cfg.Testnet)
	assert.Equal(t, "https://testnet.example", cfg.BaseURL)
}

func TestFromEnv_MissingOptionalVarsLeavesDefaults(t *testing.T) {
	cfg, err := FromEnv("UNSETVENUE")
	require.NoError(t, err)
	assert.False(t, cfg.Testnet)
	assert.Empty(t, cfg.BaseURL)
	assert.False(t, cfg.HasCredentials())
}

func TestFromEnv_InvalidTestnetBooleanIsConfigError(t *testing.T) {
	t.Setenv("BADVENUE_TESTNET", "not-a-bool")

	_, err := FromEnv("BADVENUE")
	require.Error(t, err)
}

// ============================================================
// Secret redaction
// ============================================================

func TestSecret_StringRedacts(t *testing.T) {
	s := NewSecret("supersecret")
	assert.Equal(t, "[redacted]", s.String())
	assert.NotContains(t, s.String(), "supersecret")
}

func TestSecret_EmptyStringIsNotRedacted(t *testing.T) {
	s := NewSecret("")
	assert.Equal(t, "", s.String())
	assert.True(t, s.IsEmpty())
}

func TestSecret_MarshalJSONRedacts(t *testing.T) {
	s := NewSecret("supersecret")
	raw, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"[redacted]"`, string(raw))
}

func TestSecret_Expose(t *testing.T) {
	s := NewSecret("plaintext")
	assert.Equal(t, "plaintext", s.Expose())
}
