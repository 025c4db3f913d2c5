// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"gopkg.in/square/go-jose.v2"
)

// JWK is an RSA public JSON Web Key as published in a provider's JWK Set.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSet is the document served from a provider's jwks endpoint.
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// PublicKey converts the JWK into an *rsa.PublicKey.
func (k JWK) PublicKey() (*rsa.PublicKey, error) {
	const op = "JWK.PublicKey"
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("%s: key type %q is not RSA: %w", op, k.Kty, ErrInvalidJWK)
	}
	if k.N == "" || k.E == "" {
		return nil, fmt.Errorf("%s: missing modulus or exponent: %w", op, ErrInvalidJWK)
	}
	if k.Alg != "" {
		if err := SupportedSigningAlgorithm(Alg(k.Alg)); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidJWK, err)
		}
	}
	raw, err := json.Marshal(k)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidJWK, err)
	}
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidJWK, err)
	}
	pub, ok := jwk.Key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s: not an RSA public key: %w", op, ErrInvalidJWK)
	}
	return pub, nil
}

// NewJWK returns the public JWK for an RSA public key.
func NewJWK(pub *rsa.PublicKey, kid string) (JWK, error) {
	const op = "jwt.NewJWK"
	if pub == nil {
		return JWK{}, fmt.Errorf("%s: missing public key: %w", op, ErrNilParameter)
	}
	raw, err := jose.JSONWebKey{Key: pub, KeyID: kid, Algorithm: string(RS256), Use: "sig"}.MarshalJSON()
	if err != nil {
		return JWK{}, fmt.Errorf("%s: %w", op, err)
	}
	var k JWK
	if err := json.Unmarshal(raw, &k); err != nil {
		return JWK{}, fmt.Errorf("%s: %w", op, err)
	}
	return k, nil
}

// SelectSigningKey returns the last key whose use is "sig".
func SelectSigningKey(keys []JWK) (JWK, bool) {
	var (
		found JWK
		ok    bool
	)
	for _, k := range keys {
		if k.Use == "sig" {
			found, ok = k, true
		}
	}
	return found, ok
}
