package policykit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, expression string) *Validator {
	t.Helper()
	v, err := Compile(expression)
	require.NoError(t, err)
	return v
}

func TestEmptyExpressionIsANoOp(t *testing.T) {
	for _, expr := range []string{"", "   "} {
		v := mustCompile(t, expr)
		assert.False(t, v.Enabled())
		assert.NoError(t, v.Validate(nil, map[string]any{"sub": "user123"}))
	}
}

func TestNilValidatorIsANoOp(t *testing.T) {
	var v *Validator
	assert.NoError(t, v.Validate(nil, nil))
	assert.False(t, v.Enabled())
	assert.Empty(t, v.Expression())
}

func TestTrueExpressionPasses(t *testing.T) {
	v := mustCompile(t, `claims.sub != ""`)
	assert.NoError(t, v.Validate(nil, map[string]any{"sub": "user123"}))
}

func TestFalseExpressionFails(t *testing.T) {
	v := mustCompile(t, `claims.sub == ""`)
	assert.Error(t, v.Validate(nil, map[string]any{"sub": "user123"}))
}

func TestHeaderFieldsAreVisible(t *testing.T) {
	v := mustCompile(t, `header.typ == "JWT" && header.alg == "RS256"`)
	header := map[string]any{"typ": "JWT", "alg": "RS256", "kid": "k1"}
	assert.NoError(t, v.Validate(header, map[string]any{}))
}

func TestHasPredicate(t *testing.T) {
	v := mustCompile(t, "has(claims.email)")
	assert.NoError(t, v.Validate(nil, map[string]any{"email": "user@example.com"}))
	assert.Error(t, v.Validate(nil, map[string]any{"sub": "user123"}))

	negated := mustCompile(t, "!has(claims.email)")
	assert.NoError(t, negated.Validate(nil, map[string]any{"sub": "user123"}))
}

func TestOptionalClaimPattern(t *testing.T) {
	v := mustCompile(t, `!has(claims.acr) || claims.acr == "urn:mfa"`)

	// missing field passes
	assert.NoError(t, v.Validate(nil, map[string]any{"sub": "user123"}))
	// present with the expected value passes
	assert.NoError(t, v.Validate(nil, map[string]any{"sub": "user123", "acr": "urn:mfa"}))
	// present with the wrong value fails
	assert.Error(t, v.Validate(nil, map[string]any{"sub": "user123", "acr": "wrong"}))
}

func TestStringPredicates(t *testing.T) {
	claims := map[string]any{"email": "user@example.com"}

	assert.NoError(t, mustCompile(t, `claims.email.endsWith("@example.com")`).Validate(nil, claims))
	assert.NoError(t, mustCompile(t, `claims.email.startsWith("user")`).Validate(nil, claims))
	assert.NoError(t, mustCompile(t, `claims.email.contains("@")`).Validate(nil, claims))
	assert.NoError(t, mustCompile(t, `claims.email.matches("^[a-z]+@[a-z]+\\.[a-z]+$")`).Validate(nil, claims))
}

func TestMembershipAndQuantifiers(t *testing.T) {
	roles := map[string]any{"roles": []any{"user", "admin"}}

	assert.NoError(t, mustCompile(t, `"admin" in claims.roles`).Validate(nil, roles))
	assert.NoError(t, mustCompile(t, `claims.roles.exists(r, r == "admin")`).Validate(nil, roles))
	assert.Error(t, mustCompile(t, `claims.roles.exists(r, r == "superadmin")`).Validate(nil, roles))

	scopes := map[string]any{"scopes": []any{"read:users", "read:posts"}}
	all := mustCompile(t, `claims.scopes.all(s, s.startsWith("read:"))`)
	assert.NoError(t, all.Validate(nil, scopes))
	assert.Error(t, all.Validate(nil, map[string]any{"scopes": []any{"read:users", "write:posts"}}))
}

func TestBooleanConnectivesAndTernary(t *testing.T) {
	v := mustCompile(t, `claims.sub != "" && claims.email_verified == true`)
	assert.NoError(t, v.Validate(nil, map[string]any{"sub": "user123", "email_verified": true}))

	or := mustCompile(t, `claims.role == "admin" || claims.role == "superuser"`)
	assert.NoError(t, or.Validate(nil, map[string]any{"role": "superuser"}))

	ternary := mustCompile(t, `claims.count > 5 ? true : false`)
	assert.NoError(t, ternary.Validate(nil, map[string]any{"count": 10}))
	assert.Error(t, ternary.Validate(nil, map[string]any{"count": 3}))
}

func TestAudienceAsStringOrList(t *testing.T) {
	asString := mustCompile(t, `claims.aud == "my-client-id"`)
	assert.NoError(t, asString.Validate(nil, map[string]any{"aud": "my-client-id"}))

	asList := mustCompile(t, `"my-client-id" in claims.aud`)
	assert.NoError(t, asList.Validate(nil, map[string]any{"aud": []any{"other-client", "my-client-id"}}))
}

func TestRuntimeErrorFailsClosed(t *testing.T) {
	// unguarded access to an absent field is an evaluation error, not a pass
	v := mustCompile(t, `claims.email_verified == true`)
	assert.Error(t, v.Validate(nil, map[string]any{"sub": "user123"}))
}

func TestCompileErrorIsFatal(t *testing.T) {
	_, err := Compile("invalid syntax {{{{")
	assert.Error(t, err)
}

func TestNonBooleanResultFails(t *testing.T) {
	v := mustCompile(t, "claims.sub")
	err := v.Validate(nil, map[string]any{"sub": "user123"})
	assert.ErrorIs(t, err, ErrNonBooleanResult)
}

func TestExpressionAccessor(t *testing.T) {
	v := mustCompile(t, `claims.sub != ""`)
	assert.Equal(t, `claims.sub != ""`, v.Expression())
	assert.True(t, v.Enabled())
}
