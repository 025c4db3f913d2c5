// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/sha256"
	"fmt"

	"github.com/henrjk/connect-js/codec"
)

// AtHashMode selects how the at_hash claim binding an id_token to its
// access_token is computed.
type AtHashMode string

const (
	// AtHashHexHalf is the left half of the lowercase hex SHA-256 digest of
	// the access token, as issued by Anvil Connect providers.
	AtHashHexHalf AtHashMode = "hex-half"

	// AtHashOIDC is the base64url encoding of the left half of the SHA-256
	// digest bytes, per OpenID Connect Core 3.2.2.10.
	AtHashOIDC AtHashMode = "oidc"
)

// AtHash computes the at_hash of accessToken.  The access token must be
// ASCII.
func AtHash(mode AtHashMode, accessToken string) (string, error) {
	const op = "oidc.AtHash"
	b, err := codec.ASCIIToBytes(accessToken)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	sum := sha256.Sum256(b)
	switch mode {
	case AtHashHexHalf:
		h := codec.BytesToHex(sum[:])
		return h[:len(h)/2], nil
	case AtHashOIDC:
		return codec.Base64URLEncode(sum[:len(sum)/2]), nil
	default:
		return "", fmt.Errorf("%s: unsupported mode %q: %w", op, mode, ErrInvalidParameter)
	}
}

// verifyAtHash compares the at_hash claim of idClaims with the hash of
// accessToken.
func verifyAtHash(mode AtHashMode, accessToken string, idClaims map[string]interface{}) error {
	const op = "oidc.verifyAtHash"
	want, err := AtHash(mode, accessToken)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidAtHash, err)
	}
	got, _ := idClaims["at_hash"].(string)
	if got != want {
		return fmt.Errorf("%s: %w", op, ErrInvalidAtHash)
	}
	return nil
}
