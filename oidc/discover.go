// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"

	sdkHttp "github.com/henrjk/connect-js/sdk/http"
)

// discoveryClaims are the provider metadata used besides the authorization
// endpoint.
type discoveryClaims struct {
	UserInfo     string `json:"userinfo_endpoint"`
	JWKS         string `json:"jwks_uri"`
	EndSession   string `json:"end_session_endpoint"`
	CheckSession string `json:"check_session_iframe"`
}

// Discover reads the provider's /.well-known/openid-configuration and
// replaces the default endpoints with the advertised ones.  Endpoints the
// provider does not advertise keep their defaults.  The issuer in the
// document must match the configured issuer.  The document is requested
// through the client's HTTPAccess capability.
func (c *Client) Discover(ctx context.Context) (Endpoints, error) {
	const op = "Client.Discover"
	cfg := c.Config()
	client := &http.Client{Transport: &accessTransport{access: c.caps.HTTP}}
	provider, err := oidc.NewProvider(HttpClientContext(ctx, client), cfg.Issuer) // makes http req to issuer for discovery
	if err != nil {
		return Endpoints{}, fmt.Errorf("%s: unable to discover provider: %w: %w", op, ErrInvalidIssuer, err)
	}
	var claims discoveryClaims
	if err := provider.Claims(&claims); err != nil {
		return Endpoints{}, fmt.Errorf("%s: unable to read provider metadata: %w", op, err)
	}

	c.mu.Lock()
	eps := c.endpoints
	if authURL := provider.Endpoint().AuthURL; authURL != "" {
		eps.Authorization = authURL
	}
	if claims.UserInfo != "" {
		eps.UserInfo = claims.UserInfo
	}
	if claims.JWKS != "" {
		eps.JWKS = claims.JWKS
	}
	if claims.EndSession != "" {
		eps.EndSession = claims.EndSession
	}
	if claims.CheckSession != "" {
		eps.CheckSession = claims.CheckSession
	}
	c.endpoints = eps
	c.mu.Unlock()
	c.keys.setJWKSURL(eps.JWKS)
	c.logger.Debug("discovered provider endpoints", "authorization", eps.Authorization, "jwks", eps.JWKS)
	return eps, nil
}

// accessTransport is an http.RoundTripper that sends requests with an
// HTTPAccess.  Request bodies are not supported.
type accessTransport struct {
	access HTTPAccess
}

// RoundTrip implements http.RoundTripper.
func (t *accessTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	const op = "accessTransport.RoundTrip"
	if req.Body != nil {
		req.Body.Close()
	}
	resp, err := t.access.Request(req.Context(), &sdkHttp.Request{
		Method:      req.Method,
		URL:         req.URL.String(),
		Header:      req.Header,
		CrossDomain: true,
	})
	if resp == nil {
		if err == nil {
			err = fmt.Errorf("no response: %w", ErrNilParameter)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// a response with an unexpected status is handed back; the caller
	// reports the status
	header := resp.Header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode:    resp.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}, nil
}
