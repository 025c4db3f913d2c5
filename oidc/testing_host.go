// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	sdkHttp "github.com/henrjk/connect-js/sdk/http"
	"github.com/henrjk/connect-js/storage"
)

// TestLocation is a settable LocationAccess.
type TestLocation struct {
	mu   sync.Mutex
	hash string
	path string
}

var _ LocationAccess = (*TestLocation)(nil)

// Hash implements LocationAccess.
func (l *TestLocation) Hash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hash
}

// Path implements LocationAccess.
func (l *TestLocation) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Set sets the location's fragment and path.
func (l *TestLocation) Set(hash, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hash = strings.TrimPrefix(hash, "#")
	l.path = path
}

// TestOpen records a TestWindow.Open call.
type TestOpen struct {
	URL      string
	Name     string
	Features string
}

// TestPostedMessage records a TestWindow.PostMessage call.
type TestPostedMessage struct {
	FrameID      string
	Message      string
	TargetOrigin string
}

// TestWindow is a Window whose popups request the url they are opened with,
// without following redirects, and post the redirect location back like a
// callback page does.
type TestWindow struct {
	t  *testing.T
	hc *http.Client

	mu        sync.Mutex
	href      string
	metrics   WindowMetrics
	silent    bool
	opened    []TestOpen
	navigated []string
	posted    []TestPostedMessage
	closed    int
	nextID    int
	listeners map[int]func(Message)
}

var _ Window = (*TestWindow)(nil)

// NewTestWindow returns a TestWindow at href whose popups trust the
// optional CA certificate PEM.
func NewTestWindow(t *testing.T, href, caPEM string) *TestWindow {
	t.Helper()
	hc, err := sdkHttp.NewClient(caPEM)
	require.NoError(t, err)
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &TestWindow{
		t:    t,
		hc:   hc,
		href: href,
		metrics: WindowMetrics{
			ScreenX:     0,
			ScreenY:     0,
			OuterWidth:  1280,
			OuterHeight: 800,
		},
		listeners: map[int]func(Message){},
	}
}

// SetSilent makes popups stay open without posting anything.
func (w *TestWindow) SetSilent(silent bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.silent = silent
}

// Open implements Window.
func (w *TestWindow) Open(ctx context.Context, u, name, features string) (Popup, error) {
	w.mu.Lock()
	w.opened = append(w.opened, TestOpen{URL: u, Name: name, Features: features})
	silent := w.silent
	w.mu.Unlock()
	if !silent {
		go w.complete(ctx, u)
	}
	return &testPopup{w: w}, nil
}

func (w *TestWindow) complete(ctx context.Context, u string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		w.t.Logf("popup: %s", err)
		return
	}
	resp, err := w.hc.Do(req)
	if err != nil {
		w.t.Logf("popup: %s", err)
		return
	}
	_ = resp.Body.Close()
	location := resp.Header.Get("Location")
	if location == "" {
		w.t.Logf("popup: %s answered %d without redirect", u, resp.StatusCode)
		return
	}
	w.Deliver(Message{Data: ReadyMessage, Origin: origin(location)})
	w.Deliver(Message{Data: location, Origin: origin(location)})
}

// Navigate implements Window.
func (w *TestWindow) Navigate(_ context.Context, u string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.navigated = append(w.navigated, u)
	return nil
}

// Href implements Window.
func (w *TestWindow) Href() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.href
}

// Metrics implements Window.
func (w *TestWindow) Metrics() WindowMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// OnMessage implements Window.
func (w *TestWindow) OnMessage(fn func(Message)) func() {
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

// Deliver passes m to the registered message listeners.
func (w *TestWindow) Deliver(m Message) {
	w.mu.Lock()
	fns := make([]func(Message), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

// PostMessage implements Window.
func (w *TestWindow) PostMessage(frameID, message, targetOrigin string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.posted = append(w.posted, TestPostedMessage{FrameID: frameID, Message: message, TargetOrigin: targetOrigin})
	return nil
}

// Opened returns the recorded Open calls.
func (w *TestWindow) Opened() []TestOpen {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]TestOpen(nil), w.opened...)
}

// Navigated returns the recorded Navigate urls.
func (w *TestWindow) Navigated() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.navigated...)
}

// Posted returns the recorded PostMessage calls.
func (w *TestWindow) Posted() []TestPostedMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]TestPostedMessage(nil), w.posted...)
}

// Closed returns how many popups were closed.
func (w *TestWindow) Closed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

type testPopup struct {
	w    *TestWindow
	once sync.Once
}

func (p *testPopup) Close() error {
	p.once.Do(func() {
		p.w.mu.Lock()
		p.w.closed++
		p.w.mu.Unlock()
	})
	return nil
}

// TestDOM bundles a Window and a Document.
type TestDOM struct {
	Win *TestWindow
	Doc Document
}

var _ DOMAccess = (*TestDOM)(nil)

// Window implements DOMAccess.
func (d *TestDOM) Window() Window {
	if d.Win == nil {
		return nil
	}
	return d.Win
}

// Document implements DOMAccess.
func (d *TestDOM) Document() Document {
	return d.Doc
}

// TestHost is one browsing context of an application at an origin: its
// location, window, cookies, storage and http access.
type TestHost struct {
	Location *TestLocation
	Window   *TestWindow
	Cookies  *storage.Jar
	Storage  *storage.Memory
	HTTP     *sdkHttp.Client

	t     *testing.T
	caPEM string
}

// NewTestHost returns a host whose window is at href and whose http
// access trusts the optional CA certificate PEM.
func NewTestHost(t *testing.T, href, caPEM string) *TestHost {
	t.Helper()
	require := require.New(t)
	u, err := url.Parse(href)
	require.NoError(err)
	jar, err := storage.NewCookieJar(u.Scheme + "://" + u.Host)
	require.NoError(err)
	hc, err := sdkHttp.New(caPEM)
	require.NoError(err)
	return &TestHost{
		Location: &TestLocation{path: u.Path},
		Window:   NewTestWindow(t, href, caPEM),
		Cookies:  jar,
		Storage:  storage.NewMemory(),
		HTTP:     hc,
		t:        t,
		caPEM:    caPEM,
	}
}

// Context returns another browsing context of the same origin.  It shares
// cookies and the storage area.
func (h *TestHost) Context() *TestHost {
	return &TestHost{
		Location: &TestLocation{path: h.Location.Path()},
		Window:   NewTestWindow(h.t, h.Window.Href(), h.caPEM),
		Cookies:  h.Cookies,
		Storage:  h.Storage.Context(),
		HTTP:     h.HTTP,
		t:        h.t,
		caPEM:    h.caPEM,
	}
}

// Capabilities returns the host's capabilities.
func (h *TestHost) Capabilities() Capabilities {
	return Capabilities{
		HTTP:     h.HTTP,
		Location: h.Location,
		DOM:      &TestDOM{Win: h.Window, Doc: h.Cookies},
		Storage:  h.Storage,
	}
}
