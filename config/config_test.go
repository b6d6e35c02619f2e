package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWKS_URI", "https://issuer.example.com/.well-known/jwks.json")
}

func TestLoadRequiresJWKSURI(t *testing.T) {
	t.Setenv("JWKS_URI", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWKS_URI")
}

func TestLoadRejectsRelativeJWKSURI(t *testing.T) {
	t.Setenv("JWKS_URI", "not-a-url")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 900*time.Second, cfg.MinRefreshRate)
	assert.Zero(t, cfg.Leeway)
	assert.Zero(t, cfg.DecisionCacheTTL)
	assert.False(t, cfg.Policy.Enabled())

	// empty accept lists pass any value
	assert.NoError(t, cfg.AcceptedIssuers.Assert(map[string]any{"iss": "https://anyone"}))
	assert.NoError(t, cfg.AcceptedAudiences.Assert(map[string]any{"aud": "anything"}))
	assert.NoError(t, cfg.AcceptedAlgorithms.Assert("ES384"))

	// default principal resolution order
	assert.Equal(t, "alice", cfg.PrincipalClaims.FromClaims(map[string]any{
		"preferred_username": "alice",
		"sub":                "user-1",
	}))
	assert.Equal(t, "user-1", cfg.PrincipalClaims.FromClaims(map[string]any{"sub": "user-1"}))
	assert.Equal(t, "unknown", cfg.PrincipalClaims.FromClaims(map[string]any{}))
}

func TestLoadAcceptLists(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCEPTED_ISSUERS", "https://a.example.com, https://b.example.com")
	t.Setenv("ACCEPTED_AUDIENCES", "app-1")
	t.Setenv("ACCEPTED_ALGORITHMS", "RS256, ES256")

	cfg, err := Load()
	require.NoError(t, err)

	assert.NoError(t, cfg.AcceptedIssuers.Assert(map[string]any{"iss": "https://b.example.com"}))
	assert.Error(t, cfg.AcceptedIssuers.Assert(map[string]any{"iss": "https://c.example.com"}))
	assert.Error(t, cfg.AcceptedAudiences.Assert(map[string]any{"aud": "app-2"}))
	assert.NoError(t, cfg.AcceptedAlgorithms.Assert("ES256"))
	assert.Error(t, cfg.AcceptedAlgorithms.Assert("RS512"))
}

func TestLoadRejectsUnknownAlgorithm(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCEPTED_ALGORITHMS", "RS256, HS256")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCEPTED_ALGORITHMS")
}

func TestLoadRejectsBadPolicyExpression(t *testing.T) {
	setRequired(t)
	t.Setenv("TOKEN_VALIDATION_CEL", "invalid syntax {{{{")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_VALIDATION_CEL")
}

func TestLoadCompilesPolicyExpression(t *testing.T) {
	setRequired(t)
	t.Setenv("TOKEN_VALIDATION_CEL", `claims.sub != ""`)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Policy.Enabled())
	assert.NoError(t, cfg.Policy.Validate(nil, map[string]any{"sub": "user-1"}))
}

func TestLoadNumericVariables(t *testing.T) {
	setRequired(t)
	t.Setenv("MIN_REFRESH_RATE", "60")
	t.Setenv("CLOCK_SKEW_LEEWAY", "5")
	t.Setenv("DECISION_CACHE_TTL", "300")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.MinRefreshRate)
	assert.Equal(t, 5*time.Second, cfg.Leeway)
	assert.Equal(t, 5*time.Minute, cfg.DecisionCacheTTL)
}

func TestLoadRejectsBadNumericValues(t *testing.T) {
	for _, tc := range []struct{ name, value string }{
		{"MIN_REFRESH_RATE", "abc"},
		{"MIN_REFRESH_RATE", "-1"},
		{"CLOCK_SKEW_LEEWAY", "1.5"},
		{"DECISION_CACHE_TTL", "-300"},
	} {
		t.Run(tc.name+"="+tc.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.name, tc.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.name)
		})
	}
}
