package jwtkit

import (
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// PublicKeyToJWK converts a public key into a JWK tagged with the given key
// id and algorithm.
func PublicKeyToJWK(pub crypto.PublicKey, kid, alg string) (jwk.Key, error) {
	key, err := jwk.FromRaw(pub)
	if err != nil {
		return nil, fmt.Errorf("convert public key to JWK: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.AlgorithmKey, alg); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, err
	}
	return key, nil
}

// NewJWKS builds a key set from the public keys of the given signers.
func NewJWKS(signers ...Signer) (jwk.Set, error) {
	set := jwk.NewSet()
	for _, s := range signers {
		key, err := PublicKeyToJWK(s.PublicKey(), s.KID(), s.Algorithm())
		if err != nil {
			return nil, err
		}
		if err := set.AddKey(key); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// ServeJWKS writes the key set as JSON with ETag-based conditional GET
// support and short-lived caching headers.
func ServeJWKS(w http.ResponseWriter, r *http.Request, set jwk.Set) {
	// Marshal first to compute a stable ETag and set cache headers
	b, err := json.Marshal(set)
	if err != nil {
		http.Error(w, "failed to serialize key set", http.StatusInternalServerError)
		return
	}
	sum := sha256.Sum256(b)
	etag := "\"" + hex.EncodeToString(sum[:]) + "\""

	// Conditional GET support
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
	w.Header().Set("ETag", etag)
	_, _ = w.Write(b)
}
