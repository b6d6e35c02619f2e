package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowDecision(t *testing.T) {
	claims := map[string]any{
		"sub":  "1234567890",
		"name": "John Doe",
		"iat":  float64(1516239022),
	}
	d := Allow("John Doe", claims)

	assert.True(t, d.Allowed())
	assert.Equal(t, EffectAllow, d.Effect)
	assert.Equal(t, "*", d.Resource, "allow decisions always carry the wildcard resource")
	assert.Equal(t, "John Doe", d.Principal)
	assert.Equal(t, map[string]string{
		"jwt_principal":  "John Doe",
		"jwt_claim_sub":  "1234567890",
		"jwt_claim_name": "John Doe",
		"jwt_claim_iat":  "1516239022",
	}, d.Context)
}

func TestDenyDecision(t *testing.T) {
	d := Deny(ReasonTokenExpired)

	assert.False(t, d.Allowed())
	assert.Equal(t, EffectDeny, d.Effect)
	assert.Empty(t, d.Principal)
	assert.Empty(t, d.Context, "deny carries no context")
	assert.Equal(t, ReasonTokenExpired, d.Reason)
}
