// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henrjk/connect-js/jwt"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()
	_, priv := TestGenerateKeys(t)
	k, err := jwt.NewJWK(&priv.PublicKey, "kid")
	require.NoError(t, err)

	tests := []struct {
		name        string
		issuer      string
		clientId    string
		redirectUrl string
		opts        []Option
		want        *Config
		wantIsErr   error
	}{
		{
			name:        "defaults",
			issuer:      "https://auth.example.com/",
			clientId:    "client",
			redirectUrl: "https://app.example.com/callback",
			want: &Config{
				Issuer:       "https://auth.example.com",
				ClientId:     "client",
				RedirectUrl:  "https://app.example.com/callback",
				ResponseType: "id_token token",
				Scopes:       []string{"openid", "profile"},
				Display:      DisplayPage,
				AtHashMode:   AtHashHexHalf,
			},
		},
		{
			name:        "all-options",
			issuer:      "https://auth.example.com",
			clientId:    "client",
			redirectUrl: "https://app.example.com/callback",
			opts: []Option{
				WithScopes("email", "profile", "", "realm"),
				WithResponseType("id_token"),
				WithDisplay(DisplayPopup),
				WithJWKs(k),
				WithAtHashMode(AtHashOIDC),
				WithProviderCA("ca"),
			},
			want: &Config{
				Issuer:       "https://auth.example.com",
				ClientId:     "client",
				RedirectUrl:  "https://app.example.com/callback",
				ResponseType: "id_token",
				Scopes:       []string{"openid", "profile", "email", "realm"},
				Display:      DisplayPopup,
				JWKs:         []jwt.JWK{k},
				AtHashMode:   AtHashOIDC,
				ProviderCA:   "ca",
			},
		},
		{
			name:        "missing-client-id",
			issuer:      "https://auth.example.com",
			redirectUrl: "https://app.example.com/callback",
			wantIsErr:   ErrInvalidParameter,
		},
		{
			name:        "missing-issuer",
			clientId:    "client",
			redirectUrl: "https://app.example.com/callback",
			wantIsErr:   ErrInvalidParameter,
		},
		{
			name:      "missing-redirect",
			issuer:    "https://auth.example.com",
			clientId:  "client",
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:        "bad-issuer-scheme",
			issuer:      "ftp://auth.example.com",
			clientId:    "client",
			redirectUrl: "https://app.example.com/callback",
			wantIsErr:   ErrInvalidIssuer,
		},
		{
			name:        "issuer-with-query",
			issuer:      "https://auth.example.com?tenant=1",
			clientId:    "client",
			redirectUrl: "https://app.example.com/callback",
			wantIsErr:   ErrInvalidIssuer,
		},
		{
			name:        "unsupported-response-type",
			issuer:      "https://auth.example.com",
			clientId:    "client",
			redirectUrl: "https://app.example.com/callback",
			opts:        []Option{WithResponseType("code")},
			wantIsErr:   ErrInvalidParameter,
		},
		{
			name:        "unsupported-display",
			issuer:      "https://auth.example.com",
			clientId:    "client",
			redirectUrl: "https://app.example.com/callback",
			opts:        []Option{WithDisplay("touch")},
			wantIsErr:   ErrInvalidParameter,
		},
		{
			name:        "unsupported-at-hash-mode",
			issuer:      "https://auth.example.com",
			clientId:    "client",
			redirectUrl: "https://app.example.com/callback",
			opts:        []Option{WithAtHashMode("sha1")},
			wantIsErr:   ErrInvalidParameter,
		},
		{
			name:        "bad-jwk",
			issuer:      "https://auth.example.com",
			clientId:    "client",
			redirectUrl: "https://app.example.com/callback",
			opts:        []Option{WithJWKs(jwt.JWK{Kty: "RSA", Use: "sig"})},
			wantIsErr:   ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := NewConfig(tt.issuer, tt.clientId, tt.redirectUrl, tt.opts...)
			if tt.wantIsErr != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantIsErr)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func TestConfig_Validate_nil(t *testing.T) {
	t.Parallel()
	var c *Config
	assert.ErrorIs(t, c.Validate(), ErrNilParameter)
}

func TestConfig_requestsAccessToken(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	for rt, want := range map[string]bool{
		"id_token":       false,
		"id_token token": true,
		"token id_token": true,
	} {
		c, err := NewConfig("https://auth.example.com", "client", "https://app.example.com/callback", WithResponseType(rt))
		require.NoError(t, err)
		assert.Equalf(want, c.requestsAccessToken(), "response type %q", rt)
		assert.Truef(c.requestsIdToken(), "response type %q", rt)
	}
}

func TestConfig_HttpClient(t *testing.T) {
	t.Parallel()
	t.Run("with-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewConfig("https://auth.example.com", "client", "https://app.example.com/callback",
			WithProviderCA(TestGenerateCA(t, []string{"localhost"})))
		require.NoError(err)
		got, err := c.HttpClient()
		require.NoError(err)
		assert.NotNil(got)
	})
	t.Run("bad-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewConfig("https://auth.example.com", "client", "https://app.example.com/callback",
			WithProviderCA("bad"))
		require.NoError(err)
		_, err = c.HttpClient()
		assert.ErrorIs(err, ErrInvalidCACert)
	})
}
