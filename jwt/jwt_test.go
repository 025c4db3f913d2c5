// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	josejwt "gopkg.in/square/go-jose.v2/jwt"

	"github.com/henrjk/connect-js/codec"
)

func testGenerateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv
}

func testSignJWT(t *testing.T, key interface{}, alg jose.SignatureAlgorithm, claims map[string]interface{}) string {
	t.Helper()
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: alg, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err)
	raw, err := josejwt.Signed(sig).Claims(claims).CompactSerialize()
	require.NoError(t, err)
	return raw
}

func testClaims() map[string]interface{} {
	now := float64(time.Now().Unix())
	return map[string]interface{}{
		"iss":   "https://connect.example.com",
		"sub":   "alice",
		"aud":   "client-1",
		"iat":   now,
		"exp":   now + 3600,
		"scope": "openid profile",
	}
}

func testPublicKeyPEM(t *testing.T, pub interface{}) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestSplit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		token   string
		want    Segments
		wantErr bool
	}{
		{name: "valid", token: "a.b.c", want: Segments{Header: "a", Payload: "b", Signature: "c"}},
		{name: "two-segments", token: "a.b", wantErr: true},
		{name: "four-segments", token: "a.b.c.d", wantErr: true},
		{name: "empty", token: "", wantErr: true},
		{name: "missing-header", token: ".b.c", wantErr: true},
		{name: "missing-payload", token: "a..c", wantErr: true},
		{name: "missing-signature", token: "a.b.", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := Split(tt.token)
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIs(err, ErrMalformedToken)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
			assert.Equal("a.b", got.SigningInput())
		})
	}
}

func TestDecodeSegment(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		segment string
		want    map[string]interface{}
		wantErr bool
	}{
		{
			name:    "header",
			segment: codec.Base64URLEncode([]byte(`{"alg":"RS256","typ":"JWT"}`)),
			want:    map[string]interface{}{"alg": "RS256", "typ": "JWT"},
		},
		{name: "not-base64url", segment: "***", wantErr: true},
		{name: "not-json", segment: codec.Base64URLEncode([]byte("hello")), wantErr: true},
		{name: "json-array", segment: codec.Base64URLEncode([]byte("[1,2]")), wantErr: true},
		{name: "json-null", segment: codec.Base64URLEncode([]byte("null")), wantErr: true},
		{name: "invalid-utf8", segment: codec.Base64URLEncode([]byte{0xff, 0xfe}), wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := DecodeSegment(tt.segment)
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIs(err, ErrMalformedToken)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func TestRSAKeySet_VerifySignature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	priv := testGenerateKey(t)
	otherPriv := testGenerateKey(t)

	jwk, err := NewJWK(&priv.PublicKey, "test-kid")
	require.NoError(t, err)
	ks, err := NewJWKKeySet(jwk)
	require.NoError(t, err)

	claims := testClaims()
	valid := testSignJWT(t, priv, jose.RS256, claims)
	validSegs, err := Split(valid)
	require.NoError(t, err)

	ecPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		want      map[string]interface{}
		wantErrIs error
	}{
		{
			name:  "valid",
			token: valid,
			want:  claims,
		},
		{
			name:      "replaced-signature",
			token:     validSegs.SigningInput() + "." + validSegs.Header,
			wantErrIs: ErrInvalidSignature,
		},
		{
			name:      "undecodable-signature",
			token:     validSegs.SigningInput() + ".***",
			wantErrIs: ErrInvalidSignature,
		},
		{
			name:      "signed-by-other-key",
			token:     testSignJWT(t, otherPriv, jose.RS256, claims),
			wantErrIs: ErrInvalidSignature,
		},
		{
			name: "alg-none-header",
			token: strings.Join([]string{
				codec.Base64URLEncode([]byte(`{"alg":"none"}`)),
				validSegs.Payload,
				validSegs.Signature,
			}, "."),
			wantErrIs: ErrInvalidSignature,
		},
		{
			name:      "es256-signed",
			token:     testSignJWT(t, ecPriv, jose.ES256, claims),
			wantErrIs: ErrInvalidSignature,
		},
		{
			name:      "malformed",
			token:     "not-a-token",
			wantErrIs: ErrMalformedToken,
		},
		{
			name:      "non-ascii",
			token:     "hé.b.c",
			wantErrIs: ErrMalformedToken,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := ks.VerifySignature(ctx, tt.token)
			if tt.wantErrIs != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantErrIs)
				assert.Nil(got)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func TestNewStaticKeySet(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	priv := testGenerateKey(t)

	ks, err := NewStaticKeySet([]string{testPublicKeyPEM(t, &priv.PublicKey)})
	require.NoError(err)
	claims := testClaims()
	got, err := ks.VerifySignature(ctx, testSignJWT(t, priv, jose.RS256, claims))
	require.NoError(err)
	assert.Equal(claims, got)

	ecPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)
	_, err = NewStaticKeySet([]string{testPublicKeyPEM(t, &ecPriv.PublicKey)})
	assert.Error(err)

	_, err = NewStaticKeySet([]string{"not a pem"})
	assert.Error(err)

	_, err = NewStaticKeySet(nil)
	assert.ErrorIs(err, ErrInvalidParameter)
}

func TestJWK(t *testing.T) {
	t.Parallel()
	priv := testGenerateKey(t)

	t.Run("public-key", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		k, err := NewJWK(&priv.PublicKey, "kid-1")
		require.NoError(err)
		assert.Equal("RSA", k.Kty)
		assert.Equal("sig", k.Use)
		assert.Equal("kid-1", k.Kid)
		pub, err := k.PublicKey()
		require.NoError(err)
		assert.True(priv.PublicKey.Equal(pub))
	})
	t.Run("bad-kty", func(t *testing.T) {
		_, err := JWK{Kty: "EC"}.PublicKey()
		assert.ErrorIs(t, err, ErrInvalidJWK)
	})
	t.Run("bad-alg", func(t *testing.T) {
		k, err := NewJWK(&priv.PublicKey, "kid-1")
		require.NoError(t, err)
		k.Alg = "HS256"
		_, err = k.PublicKey()
		assert.ErrorIs(t, err, ErrInvalidJWK)
		assert.ErrorIs(t, err, ErrUnsupportedAlg)
	})
	t.Run("nil-key", func(t *testing.T) {
		_, err := NewJWK(nil, "")
		assert.ErrorIs(t, err, ErrNilParameter)
	})
}

func TestSelectSigningKey(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	_, ok := SelectSigningKey(nil)
	assert.False(ok)

	_, ok = SelectSigningKey([]JWK{{Kid: "enc", Use: "enc"}})
	assert.False(ok)

	got, ok := SelectSigningKey([]JWK{
		{Kid: "first", Use: "sig"},
		{Kid: "enc", Use: "enc"},
		{Kid: "last", Use: "sig"},
	})
	assert.True(ok)
	assert.Equal("last", got.Kid)
}

func TestValidateAndParseToken(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	priv := testGenerateKey(t)
	jwk, err := NewJWK(&priv.PublicKey, "")
	require.NoError(err)
	ks, err := NewJWKKeySet(jwk)
	require.NoError(err)

	got, err := ValidateAndParseToken(ctx, "", ks)
	require.NoError(err)
	assert.Nil(got)

	claims := testClaims()
	got, err = ValidateAndParseToken(ctx, testSignJWT(t, priv, jose.RS256, claims), ks)
	require.NoError(err)
	assert.Equal(claims, got)

	_, err = ValidateAndParseToken(ctx, "a.b.c", nil)
	assert.ErrorIs(err, ErrNilParameter)

	_, err = ValidateAndParseToken(ctx, "a.b", ks)
	assert.ErrorIs(err, ErrMalformedToken)
}

func TestSupportedSigningAlgorithm(t *testing.T) {
	t.Parallel()
	assert.NoError(t, SupportedSigningAlgorithm(RS256))
	assert.ErrorIs(t, SupportedSigningAlgorithm(RS256, Alg("ES256")), ErrUnsupportedAlg)
}
