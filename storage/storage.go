// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Keys of the persistent area.
const (
	KeySession      = "anvil.connect"
	KeySessionState = "anvil.connect.session.state"
	KeyNonce        = "nonce"
	KeyJWK          = "anvil.connect.jwk"
	KeyDestination  = "anvil.connect.destination"
)

// CookieSecret is the name of the cookie holding the session locator.
const CookieSecret = "anvil.connect"

// Storage is a string keyed, string valued persistent area.
type Storage interface {
	// Get returns ErrNotFound when key has no value.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op for keys without a value.
	Delete(ctx context.Context, key string) error
}

// Event reports a change made to the area by another browsing context.
// OldValue or NewValue are empty when the key was created or removed.
type Event struct {
	Key      string
	OldValue string
	NewValue string
}

// Watcher is implemented by storages that can report changes made by
// other browsing contexts.
type Watcher interface {
	// Watch registers fn and returns a function that unregisters it.
	Watch(fn func(Event)) (cancel func(), err error)
}

// CookieJar is the document cookie of a single origin.
type CookieJar interface {
	SetCookie(c *http.Cookie) error
	// Cookie returns ErrNotFound if no unexpired cookie is named name.
	Cookie(name string) (*http.Cookie, error)
}
