package core

import (
	"fmt"
	"strings"
)

// AcceptedClaims validates a single claim against a set of accepted values.
// An empty set accepts anything, including an absent claim.
type AcceptedClaims struct {
	accepted  []string
	claimName string
}

// NewAcceptedClaims builds an AcceptedClaims from a comma-separated list of
// accepted values for the named claim. Entries are trimmed and empties
// dropped.
func NewAcceptedClaims(commaSeparated, claimName string) AcceptedClaims {
	return AcceptedClaims{
		accepted:  splitTrimmed(commaSeparated),
		claimName: claimName,
	}
}

// IsAccepted reports whether the value is a member of the accepted set.
func (c AcceptedClaims) IsAccepted(value string) bool {
	if len(c.accepted) == 0 {
		return true
	}
	for _, v := range c.accepted {
		if v == value {
			return true
		}
	}
	return false
}

// Assert checks the configured claim inside the decoded claim set. The claim
// may be a single string or a list of strings; for a list, at least one
// element must intersect the accepted set.
func (c AcceptedClaims) Assert(claims map[string]any) error {
	if len(c.accepted) == 0 {
		return nil
	}
	raw, ok := claims[c.claimName]
	if !ok {
		return fmt.Errorf("missing claim %q", c.claimName)
	}
	switch v := raw.(type) {
	case string:
		if c.IsAccepted(v) {
			return nil
		}
		return fmt.Errorf("unsupported value for claim %q (found=%q, supported=%v)", c.claimName, v, c.accepted)
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if ok && c.IsAccepted(s) {
				return nil
			}
		}
		return fmt.Errorf("no accepted value for claim %q in %v", c.claimName, v)
	default:
		return fmt.Errorf("claim %q is not a string or list of strings", c.claimName)
	}
}

func splitTrimmed(commaSeparated string) []string {
	var out []string
	for _, s := range strings.Split(commaSeparated, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
