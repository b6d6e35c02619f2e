package core

import (
	"fmt"
	"strings"
)

// supportedAlgorithms is the fixed set of asymmetric JWS algorithms this
// authorizer can verify. Secret-based algorithms (HS*) are deliberately
// absent: a shared secret in a verify-only component would let any party
// holding it mint tokens.
var supportedAlgorithms = map[string]struct{}{
	"ES256": {},
	"ES384": {},
	"RS256": {},
	"RS384": {},
	"RS512": {},
	"PS256": {},
	"PS384": {},
	"PS512": {},
	"EdDSA": {},
}

// AcceptedAlgorithms restricts which signing algorithms tokens may use.
// An empty set accepts every supported algorithm.
type AcceptedAlgorithms struct {
	accepted map[string]struct{}
}

// ParseAcceptedAlgorithms builds an AcceptedAlgorithms from a comma-separated
// list. Entries are trimmed and empties dropped. Unknown or secret-based
// algorithm names are a configuration error.
func ParseAcceptedAlgorithms(commaSeparated string) (AcceptedAlgorithms, error) {
	accepted := make(map[string]struct{})
	for _, name := range strings.Split(commaSeparated, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := supportedAlgorithms[name]; !ok {
			return AcceptedAlgorithms{}, fmt.Errorf("unsupported algorithm %q: only public-key algorithms are supported", name)
		}
		accepted[name] = struct{}{}
	}
	return AcceptedAlgorithms{accepted: accepted}, nil
}

// IsAccepted reports whether the algorithm is both supported and, when the
// accepted set is non-empty, a member of it.
func (a AcceptedAlgorithms) IsAccepted(algorithm string) bool {
	if _, ok := supportedAlgorithms[algorithm]; !ok {
		return false
	}
	if len(a.accepted) == 0 {
		return true
	}
	_, ok := a.accepted[algorithm]
	return ok
}

// Assert returns a descriptive error when the algorithm is not accepted.
func (a AcceptedAlgorithms) Assert(algorithm string) error {
	if a.IsAccepted(algorithm) {
		return nil
	}
	return fmt.Errorf("unsupported signing algorithm %q", algorithm)
}
