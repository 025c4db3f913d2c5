// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import "errors"

var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNilParameter       = errors.New("nil parameter")
	ErrSessionPersistence = errors.New("session persistence failed")
	ErrDecrypt            = errors.New("unable to decrypt")
)
