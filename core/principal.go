package core

import "encoding/json"

// PrincipalClaims resolves the principal identifier from token claims by
// checking an ordered list of candidate claim names.
type PrincipalClaims struct {
	fields       []string
	defaultValue string
}

// NewPrincipalClaims builds a resolver from a comma-separated, ordered list
// of claim names and a fallback principal id.
func NewPrincipalClaims(commaSeparated, defaultValue string) PrincipalClaims {
	return PrincipalClaims{
		fields:       splitTrimmed(commaSeparated),
		defaultValue: defaultValue,
	}
}

// FromClaims returns the first candidate claim with a non-empty string
// rendering, falling back to the configured default. Non-string claim
// values are rendered as compact JSON. It never fails.
func (p PrincipalClaims) FromClaims(claims map[string]any) string {
	for _, field := range p.fields {
		raw, ok := claims[field]
		if !ok {
			continue
		}
		if s := RenderClaimValue(raw); s != "" {
			return s
		}
	}
	return p.defaultValue
}

// RenderClaimValue renders a claim value as a string: string claims are used
// verbatim, everything else is serialized to compact JSON.
func RenderClaimValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
