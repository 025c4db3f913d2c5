// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtHash(t *testing.T) {
	t.Parallel()
	const token = "eyJhbGciOiJSUzI1NiJ9.eyJzdWIiOiIxIn0.c2ln"
	sum := sha256.Sum256([]byte(token))

	tests := []struct {
		name      string
		mode      AtHashMode
		token     string
		want      string
		wantIsErr error
	}{
		{"hex-half", AtHashHexHalf, token, hex.EncodeToString(sum[:])[:32], nil},
		{"oidc", AtHashOIDC, token, base64.RawURLEncoding.EncodeToString(sum[:16]), nil},
		{"unknown-mode", "md5", token, "", ErrInvalidParameter},
		{"non-ascii", AtHashHexHalf, "tökén", "", nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := AtHash(tt.mode, tt.token)
			if tt.want == "" {
				require.Error(err)
				if tt.wantIsErr != nil {
					assert.ErrorIs(err, tt.wantIsErr)
				}
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func Test_verifyAtHash(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	const token = "access.token.value"
	h, err := AtHash(AtHashHexHalf, token)
	require.NoError(t, err)

	assert.NoError(verifyAtHash(AtHashHexHalf, token, map[string]interface{}{"at_hash": h}))
	assert.ErrorIs(verifyAtHash(AtHashOIDC, token, map[string]interface{}{"at_hash": h}), ErrInvalidAtHash)
	assert.ErrorIs(verifyAtHash(AtHashHexHalf, token+"x", map[string]interface{}{"at_hash": h}), ErrInvalidAtHash)
	assert.ErrorIs(verifyAtHash(AtHashHexHalf, token, map[string]interface{}{}), ErrInvalidAtHash)
	assert.ErrorIs(verifyAtHash(AtHashHexHalf, token, map[string]interface{}{"at_hash": 42}), ErrInvalidAtHash)
	assert.ErrorIs(verifyAtHash(AtHashHexHalf, token, nil), ErrInvalidAtHash)
}
