package core

import (
	"errors"
	"strings"
)

const bearerScheme = "Bearer "

// ErrNotBearer is returned when the Authorization value does not carry a
// bearer token.
var ErrNotBearer = errors.New("authorization value must start with 'Bearer '")

// ParseTokenFromHeader extracts the raw token from an Authorization header
// value. The scheme prefix is matched case-sensitively and the remainder
// must be non-empty.
func ParseTokenFromHeader(authorization string) (string, error) {
	token, ok := strings.CutPrefix(authorization, bearerScheme)
	if !ok || token == "" {
		return "", ErrNotBearer
	}
	return token, nil
}
