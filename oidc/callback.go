// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"strconv"

	"github.com/henrjk/connect-js/jwt"
	"github.com/henrjk/connect-js/session"
)

// Callback completes an authorization with the parameters of the
// provider's response fragment.
//
// An error response records the response's session_state, resets the
// session and returns a *ProviderError.  Otherwise the access token and
// the id token are verified, the id token's nonce and at_hash claims are
// checked and the user's profile is fetched.  A response without the
// id token its response type requests is rejected.  Only when all of
// this succeeds the response becomes the session, is persisted and the
// authenticated listeners are notified.  On any failure the previous
// session is kept.
func (c *Client) Callback(ctx context.Context, response map[string]string) (*session.Session, error) {
	const op = "Client.Callback"
	if code := response["error"]; code != "" {
		return nil, c.callbackError(ctx, response)
	}
	cfg := c.Config()

	ks, err := c.keys.verifier(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	accessClaims, err := jwt.ValidateAndParseToken(ctx, response["access_token"], ks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrAccessTokenVerificationFailed, err)
	}
	idClaims, err := jwt.ValidateAndParseToken(ctx, response["id_token"], ks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrIdTokenVerificationFailed, err)
	}

	if cfg.requestsIdToken() {
		if idClaims == nil {
			return nil, fmt.Errorf("%s: missing id token: %w", op, ErrIdTokenVerificationFailed)
		}
		candidate, _ := idClaims["nonce"].(string)
		ok, err := c.nonces.Verify(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidNonce, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidNonce)
		}
	}
	// a missing id token has no at_hash claim and fails the comparison
	if cfg.requestsAccessToken() {
		if err := verifyAtHash(cfg.AtHashMode, response["access_token"], idClaims); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	s := &session.Session{
		AccessToken:  response["access_token"],
		IdToken:      response["id_token"],
		TokenType:    response["token_type"],
		SessionState: response["session_state"],
		Scope:        response["scope"],
		State:        response["state"],
		AccessClaims: accessClaims,
		IdClaims:     idClaims,
	}
	if v := response["expires_in"]; v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.ExpiresIn = n
		}
	}

	info, err := c.userInfo(ctx, s.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.UserInfo = info

	c.mu.Lock()
	c.session = s
	c.sessionState = s.SessionState
	c.mu.Unlock()
	c.logger.Debug("callback succeeded", "id_token", IdToken(s.IdToken), "access_token", AccessToken(s.AccessToken), "session_state", s.SessionState)

	if err := c.sessions.Serialize(ctx, s, s.SessionState); err != nil {
		c.logger.Warn("unable to persist session", "error", err)
	}
	c.events.emit(s)
	return s.Clone(), nil
}

func (c *Client) callbackError(ctx context.Context, response map[string]string) error {
	perr := &ProviderError{
		Code:         response["error"],
		Description:  response["error_description"],
		Uri:          response["error_uri"],
		State:        response["state"],
		SessionState: response["session_state"],
	}
	c.mu.Lock()
	c.sessionState = perr.SessionState
	c.mu.Unlock()
	if err := c.sessions.SetSessionState(ctx, perr.SessionState); err != nil {
		c.logger.Warn("unable to store session state", "error", err)
	}
	if err := c.Reset(ctx); err != nil {
		c.logger.Warn("unable to reset session", "error", err)
	}
	c.logger.Debug("callback error", "error", perr.Code, "description", perr.Description)
	return perr
}
