// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidJWK       = errors.New("invalid jwk")
	ErrUnsupportedAlg   = errors.New("unsupported signing algorithm")
)
