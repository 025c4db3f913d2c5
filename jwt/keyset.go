// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/henrjk/connect-js/codec"
)

// KeySet represents a set of keys that can be used to verify the signatures of JWTs.
type KeySet interface {
	// VerifySignature parses the given JWT, verifies its signature, and returns the claims in its payload.
	VerifySignature(ctx context.Context, token string) (claims map[string]interface{}, err error)
}

// RSAKeySet verifies JWT signatures with RSASSA-PKCS1-v1_5 using SHA-256.
// The alg header of a token is not consulted.
type RSAKeySet struct {
	publicKeys []*rsa.PublicKey
}

var _ KeySet = (*RSAKeySet)(nil)

// NewJWKKeySet returns a KeySet that verifies JWT signatures using the given
// RSA JSON Web Keys.
func NewJWKKeySet(keys ...JWK) (*RSAKeySet, error) {
	const op = "jwt.NewJWKKeySet"
	if len(keys) == 0 {
		return nil, fmt.Errorf("%s: no keys provided: %w", op, ErrInvalidParameter)
	}
	ks := &RSAKeySet{publicKeys: make([]*rsa.PublicKey, 0, len(keys))}
	for _, k := range keys {
		pub, err := k.PublicKey()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ks.publicKeys = append(ks.publicKeys, pub)
	}
	return ks, nil
}

// NewStaticKeySet returns a KeySet that verifies JWT signatures using PEM-encoded public keys.
// The given publicKeys must be of PEM-encoded x509 certificate or PKIX public key forms.
func NewStaticKeySet(publicKeys []string) (*RSAKeySet, error) {
	const op = "jwt.NewStaticKeySet"
	if len(publicKeys) == 0 {
		return nil, fmt.Errorf("%s: no keys provided: %w", op, ErrInvalidParameter)
	}
	ks := &RSAKeySet{publicKeys: make([]*rsa.PublicKey, 0, len(publicKeys))}
	for _, k := range publicKeys {
		key, err := parsePublicKeyPEM([]byte(k))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ks.publicKeys = append(ks.publicKeys, key)
	}
	return ks, nil
}

// VerifySignature splits the given JWT, verifies its signature over
// "header.payload" against each key, and returns the claims in its payload.
// The given JWT must be of the JWS compact serialization form.
func (ks *RSAKeySet) VerifySignature(_ context.Context, token string) (map[string]interface{}, error) {
	const op = "RSAKeySet.VerifySignature"
	segs, err := Split(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	input, err := codec.ASCIIToBytes(segs.SigningInput())
	if err != nil {
		return nil, fmt.Errorf("%s: signing input: %w: %w", op, ErrMalformedToken, err)
	}
	sig, err := codec.Base64URLDecode(segs.Signature)
	if err != nil {
		return nil, fmt.Errorf("%s: signature: %w: %w", op, ErrInvalidSignature, err)
	}
	digest := sha256.Sum256(input)

	var valid bool
	for _, pub := range ks.publicKeys {
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err == nil {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("%s: no known key successfully validated the token signature: %w", op, ErrInvalidSignature)
	}

	claims, err := DecodeSegment(segs.Payload)
	if err != nil {
		return nil, fmt.Errorf("%s: payload: %w", op, err)
	}
	return claims, nil
}

// parsePublicKeyPEM is used to parse RSA public keys from PEMs.
func parsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block != nil {
		var rawKey interface{}
		var err error
		if rawKey, err = x509.ParsePKIXPublicKey(block.Bytes); err != nil {
			if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
				rawKey = cert.PublicKey
			} else {
				return nil, err
			}
		}
		if rsaPublicKey, ok := rawKey.(*rsa.PublicKey); ok {
			return rsaPublicKey, nil
		}
	}
	return nil, errors.New("data does not contain any valid RSA public keys")
}
