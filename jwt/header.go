package jwtkit

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TokenHeader is the decoded JOSE header of a compact JWS. It is untrusted
// until the signature has been verified.
type TokenHeader struct {
	Algorithm string `json:"alg"`
	KeyID     string `json:"kid"`
	Type      string `json:"typ,omitempty"`
}

var (
	// ErrMissingKeyID is returned when the token header carries no kid.
	ErrMissingKeyID = errors.New("token header has no kid")
	// ErrMissingAlgorithm is returned when the token header carries no alg.
	ErrMissingAlgorithm = errors.New("token header has no alg")
)

// DecodeHeader decodes the first segment of a compact JWS into a TokenHeader
// without verifying anything. Both alg and kid are required so that the
// algorithm gate and key lookup can run before any cryptographic work.
func DecodeHeader(token string) (TokenHeader, error) {
	seg, _, ok := strings.Cut(token, ".")
	if !ok {
		return TokenHeader{}, errors.New("token is not a compact JWS")
	}
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return TokenHeader{}, fmt.Errorf("decode token header segment: %w", err)
	}
	var hdr TokenHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return TokenHeader{}, fmt.Errorf("parse token header: %w", err)
	}
	if hdr.Algorithm == "" {
		return TokenHeader{}, ErrMissingAlgorithm
	}
	if hdr.KeyID == "" {
		return TokenHeader{}, ErrMissingKeyID
	}
	return hdr, nil
}

// AsMap returns the header fields as a generic map, the shape the policy
// evaluator consumes.
func (h TokenHeader) AsMap() map[string]any {
	m := map[string]any{
		"alg": h.Algorithm,
		"kid": h.KeyID,
	}
	if h.Type != "" {
		m["typ"] = h.Type
	}
	return m
}
