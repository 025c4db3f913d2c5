// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package nonce manages the anti-replay value of an authorization attempt.
//
// Create stores a short random value and returns its base64url SHA-256
// hash, which is what is sent to the provider.  Verify compares a returned
// nonce claim with the hash of the stored value; the raw value is never
// compared.  A value stays valid until the next Create.
package nonce

import (
	"context"
	"errors"
	"fmt"

	"github.com/henrjk/connect-js/codec"
	"github.com/henrjk/connect-js/sdk/id"
	"github.com/henrjk/connect-js/storage"
)

// Length is the number of characters of the stored value.
const Length = 10

var ErrNilParameter = errors.New("nil parameter")

// Manager creates and verifies nonces kept in a storage area.
type Manager struct {
	storage storage.Storage
}

// NewManager returns a Manager keeping its nonce in s.
func NewManager(s storage.Storage) (*Manager, error) {
	const op = "nonce.NewManager"
	if s == nil {
		return nil, fmt.Errorf("%s: missing storage: %w", op, ErrNilParameter)
	}
	return &Manager{storage: s}, nil
}

// Create generates and stores a new nonce, replacing the current one, and
// returns its hash.
func (m *Manager) Create(ctx context.Context) (string, error) {
	const op = "Manager.Create"
	b, err := id.RandomBytes(Length)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	value := codec.Base64URLEncode(b)[:Length]
	if err := m.storage.Set(ctx, storage.KeyNonce, value); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return codec.SHA256URL(value), nil
}

// Verify reports whether candidate is the hash of the stored nonce.  It
// returns false without an error when no nonce is stored.
func (m *Manager) Verify(ctx context.Context, candidate string) (bool, error) {
	const op = "Manager.Verify"
	value, err := m.storage.Get(ctx, storage.KeyNonce)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return codec.SHA256URL(value) == candidate, nil
}
