package jwtkit

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Signer issues asymmetric JWTs. It exists for the test issuer and for
// development setups; the authorizer itself only ever verifies.
type Signer interface {
	// Algorithm returns the JWS algorithm (e.g., RS256, EdDSA).
	Algorithm() string
	// KID returns the current key id.
	KID() string
	// Sign creates a signed JWT with the provided claims.
	Sign(ctx context.Context, claims jwt.MapClaims) (token string, err error)
	// PublicKey returns the verification key for the signer.
	PublicKey() crypto.PublicKey
}

// KeySigner signs with an in-memory private key for any supported algorithm.
type KeySigner struct {
	method jwt.SigningMethod
	kid    string
	priv   crypto.PrivateKey
	pub    crypto.PublicKey
}

func (s *KeySigner) Algorithm() string           { return s.method.Alg() }
func (s *KeySigner) KID() string                 { return s.kid }
func (s *KeySigner) PublicKey() crypto.PublicKey { return s.pub }

func (s *KeySigner) Sign(_ context.Context, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.method, claims)
	token.Header["kid"] = s.kid
	return token.SignedString(s.priv)
}

// NewRSASigner generates an RSA key pair for RS256/RS384/RS512 or the PS
// variants. bits defaults to 2048.
func NewRSASigner(bits int, kid, alg string) (*KeySigner, error) {
	if bits == 0 {
		bits = 2048
	}
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", alg)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &KeySigner{method: method, kid: kid, priv: key, pub: &key.PublicKey}, nil
}

// NewECDSASigner generates an EC key pair for ES256 (P-256) or ES384 (P-384).
func NewECDSASigner(kid, alg string) (*KeySigner, error) {
	var curve elliptic.Curve
	switch alg {
	case "ES256":
		curve = elliptic.P256()
	case "ES384":
		curve = elliptic.P384()
	default:
		return nil, fmt.Errorf("unsupported ECDSA algorithm %q", alg)
	}
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeySigner{method: jwt.GetSigningMethod(alg), kid: kid, priv: key, pub: &key.PublicKey}, nil
}

// NewEdDSASigner generates an Ed25519 key pair.
func NewEdDSASigner(kid string) (*KeySigner, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeySigner{method: jwt.SigningMethodEdDSA, kid: kid, priv: priv, pub: pub}, nil
}
