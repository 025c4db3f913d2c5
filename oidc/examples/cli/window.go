// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/henrjk/connect-js/oidc"
)

var errNoFrames = errors.New("the system browser window has no embedded frames")

// browserWindow is the oidc.Window of a CLI: popups open in the system
// browser and their callback page posts back through the loopback
// listener, which delivers to the window.
type browserWindow struct {
	href string
	open func(url string) error

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(oidc.Message)
}

func newBrowserWindow(href string, open func(url string) error) *browserWindow {
	return &browserWindow{
		href:      href,
		open:      open,
		listeners: map[int]func(oidc.Message){},
	}
}

func (w *browserWindow) Open(_ context.Context, url, _, _ string) (oidc.Popup, error) {
	const op = "browserWindow.Open"
	if err := w.open(url); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return browserTab{}, nil
}

func (w *browserWindow) Navigate(_ context.Context, url string) error {
	const op = "browserWindow.Navigate"
	if err := w.open(url); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (w *browserWindow) Href() string { return w.href }

// Metrics are unknown for the system browser.
func (w *browserWindow) Metrics() oidc.WindowMetrics { return oidc.WindowMetrics{} }

func (w *browserWindow) OnMessage(fn func(oidc.Message)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

// Deliver implements callback.MessageSink.
func (w *browserWindow) Deliver(m oidc.Message) {
	w.mu.Lock()
	fns := make([]func(oidc.Message), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

func (w *browserWindow) PostMessage(frameID, _, _ string) error {
	const op = "browserWindow.PostMessage"
	return fmt.Errorf("%s: frame %q: %w", op, frameID, errNoFrames)
}

// browserTab can't be closed from here; the callback page tells the user
// to close it.
type browserTab struct{}

func (browserTab) Close() error { return nil }

type location struct{ path string }

func (l location) Hash() string { return "" }
func (l location) Path() string { return l.path }

type dom struct {
	win *browserWindow
	doc oidc.Document
}

func (d dom) Window() oidc.Window     { return d.win }
func (d dom) Document() oidc.Document { return d.doc }
