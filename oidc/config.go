// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-secure-stdlib/strutil"

	"github.com/henrjk/connect-js/jwt"
	sdkHttp "github.com/henrjk/connect-js/sdk/http"
)

// Display selects how the authorization request is presented.
type Display string

const (
	// DisplayPage navigates the top level browsing context to the provider.
	DisplayPage Display = "page"
	// DisplayPopup opens the provider in a secondary browsing context.
	DisplayPopup Display = "popup"
)

const (
	// DefaultResponseType requests an id_token and an access_token.
	DefaultResponseType = "id_token token"

	// ScopeOpenID and ScopeProfile are always requested.
	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
)

var supportedResponseTypes = []string{
	"id_token",
	"id_token token",
	"token id_token",
}

// Config represents the provider parameters of a Client.  It is immutable
// once passed to a Client.
type Config struct {
	// Issuer is the provider's base URL.  Endpoints default to paths below
	// it: /authorize, /userinfo, /jwks and /signout.
	Issuer string

	// ClientId is the relying party id
	ClientId string

	// RedirectUrl is where the provider sends its authorization response.
	RedirectUrl string

	// ResponseType defaults to "id_token token".
	ResponseType string

	// Scopes always starts with "openid" and "profile".
	Scopes []string

	// Display defaults to DisplayPage.
	Display Display

	// JWKs are the optional provider verification keys.  Without them the
	// key is restored from storage or fetched from the jwks endpoint.
	JWKs []jwt.JWK

	// AtHashMode selects how the at_hash claim is computed.
	AtHashMode AtHashMode

	// ProviderCA is an optional CA cert to use when sending requests to the provider.
	ProviderCA string
}

// NewConfig composes a new config for a provider.
// Supported options:
//
//	WithScopes
//	WithResponseType
//	WithDisplay
//	WithJWKs
//	WithAtHashMode
//	WithProviderCA
func NewConfig(issuer string, clientId string, redirectUrl string, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Issuer:       strings.TrimSuffix(issuer, "/"),
		ClientId:     clientId,
		RedirectUrl:  redirectUrl,
		ResponseType: opts.withResponseType,
		Scopes:       requiredScopes(opts.withScopes),
		Display:      opts.withDisplay,
		JWKs:         opts.withJWKs,
		AtHashMode:   opts.withAtHashMode,
		ProviderCA:   opts.withProviderCA,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// requiredScopes puts openid and profile ahead of scopes and removes
// duplicates.
func requiredScopes(scopes []string) []string {
	all := append([]string{ScopeOpenID, ScopeProfile}, scopes...)
	return strutil.RemoveDuplicatesStable(strutil.RemoveEmpty(all), false)
}

// Validate the provider configuration.  It doesn't verify the Issuer is
// discoverable via an http request.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if c.ClientId == "" {
		return fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	}
	if c.Issuer == "" {
		return fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	if c.RedirectUrl == "" {
		return fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	u, err := url.Parse(c.Issuer)
	if err != nil {
		return fmt.Errorf("%s: issuer %s is invalid (%s): %w", op, c.Issuer, err, ErrInvalidIssuer)
	}
	if !strutil.StrListContains([]string{"https", "http"}, u.Scheme) {
		return fmt.Errorf("%s: issuer %s schema is not http or https: %w", op, c.Issuer, ErrInvalidIssuer)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%s: issuer %s must not have a query or fragment: %w", op, c.Issuer, ErrInvalidIssuer)
	}
	if _, err := url.Parse(c.RedirectUrl); err != nil {
		return fmt.Errorf("%s: redirect URL %s is invalid: %w", op, c.RedirectUrl, ErrInvalidParameter)
	}
	if !strutil.StrListContains(supportedResponseTypes, c.ResponseType) {
		return fmt.Errorf("%s: unsupported response type %q: %w", op, c.ResponseType, ErrInvalidParameter)
	}
	switch c.Display {
	case DisplayPage, DisplayPopup:
	default:
		return fmt.Errorf("%s: unsupported display %q: %w", op, c.Display, ErrInvalidParameter)
	}
	switch c.AtHashMode {
	case AtHashHexHalf, AtHashOIDC:
	default:
		return fmt.Errorf("%s: unsupported at_hash mode %q: %w", op, c.AtHashMode, ErrInvalidParameter)
	}
	for _, k := range c.JWKs {
		if _, err := k.PublicKey(); err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrInvalidParameter, err)
		}
	}
	return nil
}

// requestsAccessToken reports whether the response type includes an
// access token.
func (c *Config) requestsAccessToken() bool {
	return c.responseTypeIncludes("token")
}

// requestsIdToken reports whether the response type includes an id token.
func (c *Config) requestsIdToken() bool {
	return c.responseTypeIncludes("id_token")
}

func (c *Config) responseTypeIncludes(responseType string) bool {
	return strutil.StrListContains(strings.Fields(c.ResponseType), responseType)
}

// HttpClient is a helper function that creates a new http client for the
// provider configured
func (c *Config) HttpClient() (*http.Client, error) {
	const op = "Config.HttpClient"
	client, err := sdkHttp.NewClient(c.ProviderCA)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// HttpClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HttpClientContext(ctx context.Context, client *http.Client) context.Context {
	return sdkHttp.ClientContext(ctx, client)
}

// configOptions is the set of available options
type configOptions struct {
	withScopes       []string
	withResponseType string
	withDisplay      Display
	withJWKs         []jwt.JWK
	withAtHashMode   AtHashMode
	withProviderCA   string
}

// configDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func configDefaults() configOptions {
	return configOptions{
		withResponseType: DefaultResponseType,
		withDisplay:      DisplayPage,
		withAtHashMode:   AtHashHexHalf,
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides an optional list of scopes requested in addition to
// "openid" and "profile".
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithResponseType provides an optional response type.
func WithResponseType(responseType string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok && responseType != "" {
			o.withResponseType = responseType
		}
	}
}

// WithDisplay provides an optional display mode.
func WithDisplay(d Display) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok && d != "" {
			o.withDisplay = d
		}
	}
}

// WithJWKs provides the provider's verification keys.  A single key is used
// as is; from several keys the last one for use "sig" is selected.
func WithJWKs(keys ...jwt.JWK) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withJWKs = keys
		}
	}
}

// WithAtHashMode provides an optional at_hash computation.
func WithAtHashMode(m AtHashMode) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			if m != "" {
				v.withAtHashMode = m
			}
		case *testProviderOptions:
			if m != "" {
				v.withAtHashMode = m
			}
		}
	}
}

// WithProviderCA provides an optional CA cert for the provider's config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}
