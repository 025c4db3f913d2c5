// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"

	sdkHttp "github.com/henrjk/connect-js/sdk/http"
	"github.com/henrjk/connect-js/storage"
)

// ReadyMessage is posted by a callback page before it posts its location
// and is ignored.
const ReadyMessage = "__ready__"

// HTTPAccess performs requests to the provider.  *sdk/http.Client
// implements it.
type HTTPAccess interface {
	Request(ctx context.Context, r *sdkHttp.Request) (*sdkHttp.Response, error)
	GetData(r *sdkHttp.Response) (interface{}, error)
}

// LocationAccess reads the location of the hosting browsing context.
type LocationAccess interface {
	// Hash returns the fragment without the leading "#".
	Hash() string
	Path() string
}

// DOMAccess gives access to the hosting window and document.
type DOMAccess interface {
	Window() Window
	Document() Document
}

// Message is a cross-context message received by a Window.
type Message struct {
	Data   string
	Origin string
}

// Popup is a secondary browsing context opened by a Window.
type Popup interface {
	Close() error
}

// Window is the hosting top level browsing context.
type Window interface {
	// Open opens url in a secondary browsing context.
	Open(ctx context.Context, url, name, features string) (Popup, error)
	// Navigate sets the location of the window.
	Navigate(ctx context.Context, url string) error
	// Href returns the current location.
	Href() string
	Metrics() WindowMetrics
	// OnMessage registers fn for cross-context messages and returns a func
	// that unregisters it.
	OnMessage(fn func(Message)) (unsubscribe func())
	// PostMessage posts message to the embedded frame frameID, restricted
	// to targetOrigin.
	PostMessage(frameID, message, targetOrigin string) error
}

// Document is the hosting document; its cookie holds the session locator.
type Document interface {
	storage.CookieJar
}

// Capabilities are the host collaborators a Client is built from.
type Capabilities struct {
	HTTP     HTTPAccess
	Location LocationAccess
	DOM      DOMAccess
	// Storage is the origin's persistent area.  When it implements
	// storage.Watcher, changes made by other browsing contexts update the
	// Client's session.
	Storage storage.Storage
}

// Validate returns ErrConfiguration when a capability is missing.
func (c Capabilities) Validate() error {
	const op = "Capabilities.Validate"
	switch {
	case c.HTTP == nil:
		return fmt.Errorf("%s: missing http access: %w", op, ErrConfiguration)
	case c.Location == nil:
		return fmt.Errorf("%s: missing location access: %w", op, ErrConfiguration)
	case c.DOM == nil:
		return fmt.Errorf("%s: missing dom access: %w", op, ErrConfiguration)
	case c.DOM.Window() == nil:
		return fmt.Errorf("%s: dom access has no window: %w", op, ErrConfiguration)
	case c.DOM.Document() == nil:
		return fmt.Errorf("%s: dom access has no document: %w", op, ErrConfiguration)
	case c.Storage == nil:
		return fmt.Errorf("%s: missing storage: %w", op, ErrConfiguration)
	}
	return nil
}
