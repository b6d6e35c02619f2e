package jwtkit

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired is returned when the token's exp claim is in the past.
	ErrExpired = errors.New("token is expired")
	// ErrNotYetValid is returned when the token's nbf claim is in the future.
	ErrNotYetValid = errors.New("token is not valid yet")
	// ErrKeyAlgorithmMismatch is returned when the verification key's type
	// does not belong to the declared algorithm's family.
	ErrKeyAlgorithmMismatch = errors.New("verification key does not match signing algorithm family")
)

// Verify checks the token's signature against the given public key using the
// declared algorithm, and validates exp and nbf when present, applying the
// configured leeway. The set of valid methods is pinned to the single
// declared algorithm so the token cannot downgrade itself. Issuer and
// audience are not evaluated here.
func Verify(token string, key crypto.PublicKey, algorithm string, leeway time.Duration, now func() time.Time) (map[string]any, error) {
	if now == nil {
		now = time.Now
	}
	if err := checkKeyFamily(key, algorithm); err != nil {
		return nil, err
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{algorithm}),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(now),
	)
	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, fmt.Errorf("%w: %v", ErrNotYetValid, err)
		default:
			return nil, fmt.Errorf("token verification failed: %w", err)
		}
	}
	return map[string]any(claims), nil
}

func checkKeyFamily(key crypto.PublicKey, algorithm string) error {
	var ok bool
	switch {
	case strings.HasPrefix(algorithm, "RS"), strings.HasPrefix(algorithm, "PS"):
		_, ok = key.(*rsa.PublicKey)
	case strings.HasPrefix(algorithm, "ES"):
		_, ok = key.(*ecdsa.PublicKey)
	case algorithm == "EdDSA":
		_, ok = key.(ed25519.PublicKey)
	}
	if !ok {
		return fmt.Errorf("%w (alg=%s, key=%T)", ErrKeyAlgorithmMismatch, algorithm, key)
	}
	return nil
}
