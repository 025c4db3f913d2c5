// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/henrjk/connect-js/nonce"
	sdkHttp "github.com/henrjk/connect-js/sdk/http"
	"github.com/henrjk/connect-js/session"
	"github.com/henrjk/connect-js/storage"
)

// Endpoints are the provider URLs a Client talks to.
type Endpoints struct {
	Authorization string
	UserInfo      string
	JWKS          string
	EndSession    string
	CheckSession  string
}

func defaultEndpoints(issuer string) Endpoints {
	return Endpoints{
		Authorization: issuer + "/authorize",
		UserInfo:      issuer + "/userinfo",
		JWKS:          issuer + "/jwks",
		EndSession:    issuer + "/signout",
	}
}

// Client drives the implicit flow for one browsing context and owns its
// Session.
type Client struct {
	caps     Capabilities
	logger   hclog.Logger
	nonces   *nonce.Manager
	sessions *session.Store
	keys     *keySource
	events   *emitter

	mu           sync.RWMutex
	config       *Config
	endpoints    Endpoints
	session      *session.Session
	sessionState string

	// backgroundCtx is used for storage change notifications.
	backgroundCtx       context.Context
	backgroundCtxCancel context.CancelFunc
	stopWatching        func()
}

// NewClient creates a Client from the provider config and the host
// capabilities, restores a persisted session and subscribes to storage
// changes when caps.Storage is a storage.Watcher.  Done must be called to
// release the subscription.
//
// Supported options: WithLogger, WithNow
func NewClient(ctx context.Context, c *Config, caps Capabilities, opt ...Option) (*Client, error) {
	const op = "NewClient"
	if err := caps.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	opts := getClientOpts(opt...)

	nonces, err := nonce.NewManager(caps.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sessions, err := session.NewStore(
		caps.Storage,
		caps.DOM.Document(),
		session.WithLogger(opts.withLogger),
		session.WithNow(opts.withNow),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	client := &Client{
		caps:                caps,
		logger:              opts.withLogger,
		nonces:              nonces,
		sessions:            sessions,
		keys:                newKeySource(caps.Storage, caps.HTTP, opts.withLogger),
		events:              newEmitter(),
		session:             &session.Session{},
		backgroundCtx:       bgCtx,
		backgroundCtxCancel: cancel,
	}
	if err := client.Configure(ctx, c); err != nil {
		client.Done()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	client.deserialize(ctx)

	if w, ok := caps.Storage.(storage.Watcher); ok {
		stop, err := w.Watch(func(e storage.Event) {
			client.UpdateSession(client.backgroundCtx, e)
		})
		if err != nil {
			client.logger.Warn("unable to watch storage, sessions of other browsing contexts are not picked up", "error", err)
		} else {
			client.stopWatching = stop
		}
	}
	return client, nil
}

// Done releases the client's background resources and must be called for
// every Client created.
func (c *Client) Done() {
	if c == nil {
		return
	}
	c.mu.Lock()
	stop, cancel := c.stopWatching, c.backgroundCtxCancel
	c.stopWatching, c.backgroundCtxCancel = nil, nil
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
	if cancel != nil {
		cancel()
	}
}

// Configure replaces the provider parameters.  Endpoints are reset to the
// issuer's defaults and the configured keys, or the cached key, become the
// verification key.
func (c *Client) Configure(ctx context.Context, cfg *Config) error {
	const op = "Client.Configure"
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	endpoints := defaultEndpoints(cfg.Issuer)
	if err := c.keys.configure(ctx, endpoints.JWKS, cfg.JWKs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.mu.Lock()
	c.config = cfg
	c.endpoints = endpoints
	c.mu.Unlock()
	return nil
}

// Config returns the provider parameters.
func (c *Client) Config() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// Endpoints returns the provider URLs in use.
func (c *Client) Endpoints() Endpoints {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoints
}

// PrepareAuthorization makes sure a verification key is available,
// fetching the provider's JWK Set when needed.
func (c *Client) PrepareAuthorization(ctx context.Context) error {
	const op = "Client.PrepareAuthorization"
	if err := c.keys.prepare(ctx); err != nil {
		c.logger.Warn("prepare authorization failed", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	c.logger.Debug("prepare authorization succeeded")
	return nil
}

// Session returns a copy of the current session.
func (c *Client) Session() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Clone()
}

// SessionState returns the provider's last reported session state.
func (c *Client) SessionState() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionState
}

// IsAuthenticated reports whether the session holds an id token.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.IsAuthenticated()
}

// RequireScope returns the session if it is authenticated and its access
// token was granted scope.
func (c *Client) RequireScope(scope string) (*session.Session, error) {
	const op = "Client.RequireScope"
	s := c.Session()
	if !s.IsAuthenticated() {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}
	granted, _ := s.AccessClaims["scope"].(string)
	for _, g := range strings.Fields(granted) {
		if g == scope {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%s: scope %q not granted: %w", op, scope, ErrInsufficientScope)
}

// Reset clears the session and its persisted record.
func (c *Client) Reset(ctx context.Context) error {
	const op = "Client.Reset"
	c.mu.Lock()
	c.session = &session.Session{}
	c.mu.Unlock()
	if err := c.sessions.Reset(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// OnAuthenticated registers fn to be called with the session whenever the
// client becomes authenticated, including through another browsing
// context.  It returns a func that unregisters fn.
func (c *Client) OnAuthenticated(fn func(*session.Session)) (off func()) {
	return c.events.on(fn, false)
}

// OnceAuthenticated is OnAuthenticated for the next notification only.
func (c *Client) OnceAuthenticated(fn func(*session.Session)) (off func()) {
	return c.events.on(fn, true)
}

// UpdateSession handles a change to the persistent area made by another
// browsing context.  A change of the session ciphertext restores the
// session and notifies the authenticated listeners.
func (c *Client) UpdateSession(ctx context.Context, e storage.Event) {
	if e.Key != storage.KeySession {
		return
	}
	s := c.deserialize(ctx)
	if s.IsAuthenticated() {
		c.events.emit(s)
	}
}

// deserialize adopts the persisted session, or an empty one.
func (c *Client) deserialize(ctx context.Context) *session.Session {
	s, state := c.sessions.Deserialize(ctx)
	c.mu.Lock()
	c.session = s
	c.sessionState = state
	c.mu.Unlock()
	return s.Clone()
}

// Headers returns h with an Authorization header carrying the session's
// access token.  h is returned unchanged without an access token.
func (c *Client) Headers(h http.Header) http.Header {
	c.mu.RLock()
	token := c.session.AccessToken
	c.mu.RUnlock()
	return bearer(h, token)
}

func bearer(h http.Header, token string) http.Header {
	if token == "" {
		return h
	}
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}
	out.Set("Authorization", "Bearer "+token)
	return out
}

// Request sends r with the session's Authorization header.
func (c *Client) Request(ctx context.Context, r *sdkHttp.Request) (*sdkHttp.Response, error) {
	const op = "Client.Request"
	if r == nil {
		return nil, fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	req := *r
	req.Header = c.Headers(r.Header)
	return c.send(ctx, &req)
}

func (c *Client) send(ctx context.Context, r *sdkHttp.Request) (*sdkHttp.Response, error) {
	const op = "Client.send"
	r.CrossDomain = true
	resp, err := c.caps.HTTP.Request(ctx, r)
	if err != nil {
		c.logger.Warn("request failed", "method", r.Method, "url", r.URL, "error", err)
		return resp, fmt.Errorf("%s: %w", op, err)
	}
	c.logger.Debug("request succeeded", "method", r.Method, "url", r.URL)
	return resp, nil
}

// UserInfo requests the user's profile with the session's access token.
func (c *Client) UserInfo(ctx context.Context) (map[string]interface{}, error) {
	c.mu.RLock()
	token := c.session.AccessToken
	c.mu.RUnlock()
	return c.userInfo(ctx, token)
}

func (c *Client) userInfo(ctx context.Context, accessToken string) (map[string]interface{}, error) {
	const op = "Client.userInfo"
	resp, err := c.send(ctx, &sdkHttp.Request{
		Method: http.MethodGet,
		URL:    c.Endpoints().UserInfo,
		Header: bearer(nil, accessToken),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUserInfoFailed, err)
	}
	data, err := c.caps.HTTP.GetData(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUserInfoFailed, err)
	}
	info, ok := data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: user info is not a json object: %w", op, ErrUserInfoFailed)
	}
	return info, nil
}

// SetDestination stores the path to return to after authorization.
func (c *Client) SetDestination(ctx context.Context, path string) error {
	const op = "Client.SetDestination"
	if path == "" {
		return fmt.Errorf("%s: path is empty: %w", op, ErrInvalidParameter)
	}
	if err := c.caps.Storage.Set(ctx, storage.KeyDestination, path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Destination returns the stored path, or "" when none is stored.
func (c *Client) Destination(ctx context.Context) (string, error) {
	const op = "Client.Destination"
	path, err := c.caps.Storage.Get(ctx, storage.KeyDestination)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return path, nil
}

// ConsumeDestination returns the stored path and removes it, so it is
// returned once only.
func (c *Client) ConsumeDestination(ctx context.Context) (string, error) {
	const op = "Client.ConsumeDestination"
	path, err := c.Destination(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := c.caps.Storage.Delete(ctx, storage.KeyDestination); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return path, nil
}

// CheckSession posts "client_id session_state" to the provider's check
// session frame, per OpenID Connect Session Management.
func (c *Client) CheckSession(frameID string) error {
	const op = "Client.CheckSession"
	c.mu.RLock()
	message := c.config.ClientId + " " + c.sessionState
	origin := c.config.Issuer
	c.mu.RUnlock()
	if err := c.caps.DOM.Window().PostMessage(frameID, message, origin); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
