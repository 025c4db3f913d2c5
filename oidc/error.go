// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter              = errors.New("invalid parameter")
	ErrNilParameter                  = errors.New("nil parameter")
	ErrConfiguration                 = errors.New("configuration error")
	ErrInvalidCACert                 = errors.New("invalid CA certificate")
	ErrInvalidIssuer                 = errors.New("invalid issuer")
	ErrMissingSigningKey             = errors.New("no signing key available")
	ErrAccessTokenVerificationFailed = errors.New("failed to verify or parse access token")
	ErrIdTokenVerificationFailed     = errors.New("failed to verify or parse id token")
	ErrInvalidNonce                  = errors.New("invalid nonce")
	ErrInvalidAtHash                 = errors.New("invalid access token hash in id token payload")
	ErrUserInfoFailed                = errors.New("retrieving user info from server failed")
	ErrLoginFailed                   = errors.New("login failed")
	ErrNotAuthenticated              = errors.New("not authenticated")
	ErrInsufficientScope             = errors.New("insufficient scope")
	ErrNotFound                      = errors.New("not found")
)

// ProviderError is the error response of an authorization request.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type ProviderError struct {
	Code         string
	Description  string
	Uri          string
	State        string
	SessionState string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s: %s", ErrLoginFailed, e.Code, e.Description)
	}
	return fmt.Sprintf("%s: %s", ErrLoginFailed, e.Code)
}

// Is reports ErrLoginFailed as the kind of every ProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == ErrLoginFailed
}
