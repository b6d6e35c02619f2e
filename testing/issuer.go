// Package testing provides a mock issuer for testing applications that use
// authzkit. It runs an HTTP server that serves a JWKS document and signs
// tokens that validate against it, so authorizer tests never need a real
// identity provider.
//
// Example usage:
//
//	issuer := testing.NewTestIssuer()
//	defer issuer.Close()
//
//	// Point the key cache at the issuer
//	storage := keykit.NewStorage(issuer.JWKSURL(), 15*time.Minute)
//
//	// Mint tokens for testing
//	token := issuer.CreateToken("user-123", "test@example.com")
package testing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	jwtkit "github.com/open-rails/authzkit/jwt"
)

// TestIssuer serves a JWKS document over httptest and signs tokens with the
// matching private keys. The default issuer signs RS256; additional signers
// can be generated for any supported algorithm.
type TestIssuer struct {
	server   *httptest.Server
	signers  map[string]jwtkit.Signer
	active   jwtkit.Signer
	audience string
	hits     atomic.Int32
}

// NewTestIssuer creates a test issuer with an RS256 signing key.
func NewTestIssuer() *TestIssuer {
	return NewTestIssuerWithAudience("test-app")
}

// NewTestIssuerWithAudience creates a test issuer with a specific audience.
func NewTestIssuerWithAudience(audience string) *TestIssuer {
	signer, err := jwtkit.NewRSASigner(2048, "test-key-1", "RS256")
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}

	ti := &TestIssuer{
		signers:  map[string]jwtkit.Signer{signer.KID(): signer},
		active:   signer,
		audience: audience,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", ti.handleJWKS)

	ti.server = httptest.NewServer(mux)
	return ti
}

// AddSigner generates and registers an extra signing key for the given
// algorithm, returning its key id.
func (ti *TestIssuer) AddSigner(kid, alg string) jwtkit.Signer {
	var (
		signer jwtkit.Signer
		err    error
	)
	switch alg {
	case "ES256", "ES384":
		signer, err = jwtkit.NewECDSASigner(kid, alg)
	case "EdDSA":
		signer, err = jwtkit.NewEdDSASigner(kid)
	default:
		signer, err = jwtkit.NewRSASigner(2048, kid, alg)
	}
	if err != nil {
		panic("failed to create signer: " + err.Error())
	}
	ti.signers[kid] = signer
	return signer
}

// URL returns the base URL of the test issuer server. Use this as the
// accepted issuer in your configuration.
func (ti *TestIssuer) URL() string {
	return ti.server.URL
}

// JWKSURL returns the URL of the JWKS document.
func (ti *TestIssuer) JWKSURL() string {
	return ti.server.URL + "/.well-known/jwks.json"
}

// Audience returns the audience configured for this test issuer.
func (ti *TestIssuer) Audience() string {
	return ti.audience
}

// Close shuts down the test server.
func (ti *TestIssuer) Close() {
	if ti.server != nil {
		ti.server.Close()
	}
}

// Hits returns how many times the JWKS document has been fetched, so tests
// can assert on cache behavior.
func (ti *TestIssuer) Hits() int32 {
	return ti.hits.Load()
}

// handleJWKS serves the JWKS document containing every registered public key.
func (ti *TestIssuer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	ti.hits.Add(1)
	signers := make([]jwtkit.Signer, 0, len(ti.signers))
	for _, s := range ti.signers {
		signers = append(signers, s)
	}
	set, err := jwtkit.NewJWKS(signers...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jwtkit.ServeJWKS(w, r, set)
}

// CreateToken creates a signed JWT for testing with one hour of validity.
func (ti *TestIssuer) CreateToken(userID, email string) string {
	return ti.CreateTokenWithClaims(userID, email, nil)
}

// CreateTokenWithClaims creates a signed JWT with additional custom claims
// merged over the standard ones (sub, email, iss, aud, exp, iat).
func (ti *TestIssuer) CreateTokenWithClaims(userID, email string, extraClaims map[string]any) string {
	return ti.signWith(ti.active, userID, email, extraClaims)
}

// CreateTokenSignedBy creates a signed JWT using a specific registered
// signer, for exercising non-RSA algorithms.
func (ti *TestIssuer) CreateTokenSignedBy(kid, userID, email string, extraClaims map[string]any) string {
	signer, ok := ti.signers[kid]
	if !ok {
		panic("unknown signer kid: " + kid)
	}
	return ti.signWith(signer, userID, email, extraClaims)
}

// CreateExpiredToken creates a token that expired an hour ago.
func (ti *TestIssuer) CreateExpiredToken(userID, email string) string {
	return ti.CreateTokenWithClaims(userID, email, map[string]any{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
}

func (ti *TestIssuer) signWith(signer jwtkit.Signer, userID, email string, extraClaims map[string]any) string {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iss":   ti.URL(),
		"aud":   ti.audience,
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Unix(),
	}
	for k, v := range extraClaims {
		claims[k] = v
	}

	token, err := signer.Sign(context.Background(), claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}
