// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-secure-stdlib/strutil"
	"github.com/stretchr/testify/require"

	"github.com/henrjk/connect-js/jwt"
	"github.com/henrjk/connect-js/sdk/id"
)

// TestProvider is a local implicit flow provider which makes writing tests
// much easier.  It serves discovery, /authorize, /jwks, /userinfo and
// /signout over TLS and issues RS256 signed tokens.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	privateKey *rsa.PrivateKey
	jwk        jwt.JWK
	now        func() time.Time

	mu                  sync.Mutex
	clientID            string
	allowedRedirectURIs []string
	replySubject        string
	replyUserinfo       map[string]interface{}
	customClaims        map[string]interface{}
	expiresIn           int
	atHashMode          AtHashMode
	tamperAtHash        bool
	nonceOverride       string
	authError           string
	disableUserInfo     bool
	userInfoAuthz       []string
	signouts            []url.Values

	t *testing.T
}

// testProviderOptions is the set of available options for StartTestProvider
type testProviderOptions struct {
	withAtHashMode AtHashMode
	withNow        func() time.Time
}

func testProviderDefaults() testProviderOptions {
	return testProviderOptions{
		withAtHashMode: AtHashHexHalf,
		withNow:        time.Now,
	}
}

func getTestProviderOpts(opt ...Option) testProviderOptions {
	opts := testProviderDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// StartTestProvider creates a disposable TestProvider which is stopped when
// the test completes.  Supported options: WithAtHashMode, WithNow
func StartTestProvider(t *testing.T, opt ...Option) *TestProvider {
	t.Helper()
	require := require.New(t)
	opts := getTestProviderOpts(opt...)

	p := &TestProvider{
		allowedRedirectURIs: []string{
			"https://app.example.com/callback",
		},
		replySubject: "r3qXcK2bix9eFECzsU3Sbmh0K16fatW6",
		replyUserinfo: map[string]interface{}{
			"name":        "Alice",
			"email":       "alice@example.com",
			"color":       "red",
			"temperature": "76",
		},
		expiresIn:  3600,
		atHashMode: opts.withAtHashMode,
		now:        opts.withNow,
		t:          t,
	}
	_, p.privateKey = TestGenerateKeys(t)
	k, err := jwt.NewJWK(&p.privateKey.PublicKey, "test-key")
	require.NoError(err)
	p.jwk = k

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()

	var buf bytes.Buffer
	err = pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running
// webserver, which is also its issuer.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// SigningKey returns the key tokens are signed with.
func (p *TestProvider) SigningKey() *rsa.PrivateKey { return p.privateKey }

// JWK returns the public JWK of the signing key, as served from /jwks.
func (p *TestProvider) JWK() jwt.JWK { return p.jwk }

// SetClientID configures the client id tokens are issued to.
func (p *TestProvider) SetClientID(clientID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
}

// SetAllowedRedirectURIs allows you to configure the allowed redirect URIs for
// the OIDC workflow. If not configured "https://app.example.com/callback" is
// used.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetCustomClaims lets you set claims to add to the id_token.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetUserInfoReply sets the profile returned from /userinfo.
func (p *TestProvider) SetUserInfoReply(reply map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserinfo = reply
}

// SetExpiresIn sets the expires_in of issued responses.
func (p *TestProvider) SetExpiresIn(seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiresIn = seconds
}

// SetTamperAtHash makes issued id_tokens carry an at_hash that does not
// match their access_token.
func (p *TestProvider) SetTamperAtHash(tamper bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tamperAtHash = tamper
}

// SetNonceOverride makes issued id_tokens carry nonce instead of the
// requested one.
func (p *TestProvider) SetNonceOverride(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonceOverride = nonce
}

// SetAuthError makes /authorize answer with the error code instead of
// tokens.  An empty code restores successful responses.
func (p *TestProvider) SetAuthError(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authError = code
}

// DisableUserInfo makes the userinfo endpoint return 404 and omits it from the
// discovery config.
func (p *TestProvider) DisableUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = true
}

// UserInfoAuthorizations returns the Authorization headers /userinfo was
// requested with.
func (p *TestProvider) UserInfoAuthorizations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.userInfoAuthz...)
}

// Signouts returns the query parameters /signout was requested with.
func (p *TestProvider) Signouts() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.signouts...)
}

// Fragment returns the parameters of a successful authorization response
// for the given request parameters, form encoded as placed in the
// redirect fragment.
func (p *TestProvider) Fragment(params url.Values) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ToFormURLEncoded(p.responseParams(params))
}

// responseParams must be called with p.mu held.
func (p *TestProvider) responseParams(params url.Values) map[string]string {
	p.t.Helper()
	require := require.New(p.t)

	sessionState, err := id.New("ss")
	require.NoError(err)
	if p.authError != "" {
		return map[string]string{
			"error":             p.authError,
			"error_description": "the test provider refused the request",
			"session_state":     sessionState,
		}
	}

	now := p.now()
	aud := p.clientID
	if aud == "" {
		aud = params.Get("client_id")
	}
	std := map[string]interface{}{
		"iss": p.Addr(),
		"sub": p.replySubject,
		"aud": aud,
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(p.expiresIn) * time.Second).Unix(),
	}
	out := map[string]string{
		"token_type":    "Bearer",
		"expires_in":    strconv.Itoa(p.expiresIn),
		"session_state": sessionState,
	}
	if s := params.Get("state"); s != "" {
		out["state"] = s
	}

	responseType := strings.Fields(params.Get("response_type"))
	idClaims := map[string]interface{}{}
	for k, v := range std {
		idClaims[k] = v
	}
	idClaims["nonce"] = params.Get("nonce")
	if p.nonceOverride != "" {
		idClaims["nonce"] = p.nonceOverride
	}

	if strutil.StrListContains(responseType, "token") {
		accessClaims := map[string]interface{}{
			"scope": params.Get("scope"),
		}
		for k, v := range std {
			accessClaims[k] = v
		}
		accessToken := TestSignJWT(p.t, p.privateKey, accessClaims)
		atHash, err := AtHash(p.atHashMode, accessToken)
		require.NoError(err)
		if p.tamperAtHash {
			atHash = "tampered" + atHash
		}
		idClaims["at_hash"] = atHash
		out["access_token"] = accessToken
	}
	for k, v := range p.customClaims {
		idClaims[k] = v
	}
	out["id_token"] = TestSignJWT(p.t, p.privateKey, idClaims)
	return out
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	redirectURI := req.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	fragment := map[string]string{"error": errorCode}
	if errorMessage != "" {
		fragment["error_description"] = errorMessage
	}
	http.Redirect(w, req, redirectURI+"#"+ToFormURLEncoded(fragment), http.StatusFound)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.t.Helper()

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		reply := struct {
			Issuer             string   `json:"issuer"`
			AuthEndpoint       string   `json:"authorization_endpoint"`
			JWKSURI            string   `json:"jwks_uri"`
			UserinfoEndpoint   string   `json:"userinfo_endpoint,omitempty"`
			EndSessionEndpoint string   `json:"end_session_endpoint"`
			CheckSessionIframe string   `json:"check_session_iframe"`
			ResponseTypes      []string `json:"response_types_supported"`
			SigningAlgs        []string `json:"id_token_signing_alg_values_supported"`
		}{
			Issuer:             p.Addr(),
			AuthEndpoint:       p.Addr() + "/authorize",
			JWKSURI:            p.Addr() + "/jwks",
			UserinfoEndpoint:   p.Addr() + "/userinfo",
			EndSessionEndpoint: p.Addr() + "/signout",
			CheckSessionIframe: p.Addr() + "/session",
			ResponseTypes:      supportedResponseTypes,
			SigningAlgs:        []string{string(jwt.RS256)},
		}
		if p.disableUserInfo {
			reply.UserinfoEndpoint = ""
		}
		_ = p.writeJSON(w, &reply)

	case "/authorize":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()

		if !strutil.StrListContains(supportedResponseTypes, qv.Get("response_type")) {
			p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
			return
		}
		if !strutil.StrListContains(strings.Fields(qv.Get("scope")), ScopeOpenID) {
			p.writeAuthErrorResponse(w, req, "invalid_scope", "")
			return
		}
		if p.clientID != "" && qv.Get("client_id") != p.clientID {
			p.writeAuthErrorResponse(w, req, "unauthorized_client", "")
			return
		}
		if qv.Get("nonce") == "" {
			p.writeAuthErrorResponse(w, req, "invalid_request", "missing nonce parameter")
			return
		}
		redirectURI := qv.Get("redirect_uri")
		if !strutil.StrListContains(p.allowedRedirectURIs, redirectURI) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		http.Redirect(w, req, redirectURI+"#"+ToFormURLEncoded(p.responseParams(qv)), http.StatusFound)

	case "/jwks":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, &jwt.JWKSet{Keys: []jwt.JWK{p.jwk}})

	case "/userinfo":
		if p.disableUserInfo {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		authz := req.Header.Get("Authorization")
		p.userInfoAuthz = append(p.userInfoAuthz, authz)
		if !strings.HasPrefix(authz, "Bearer ") || len(authz) == len("Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = p.writeJSON(w, p.replyUserinfo)

	case "/signout":
		p.signouts = append(p.signouts, req.URL.Query())
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("signed out"))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
