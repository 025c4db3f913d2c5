// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yhat/scrape"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/henrjk/connect-js/oidc"
	sdkHttp "github.com/henrjk/connect-js/sdk/http"
)

func TestImplicit(t *testing.T) {
	t.Parallel()
	sink := &testSink{}
	tests := []struct {
		name      string
		sink      MessageSink
		sFn       SuccessResponseFunc
		eFn       ErrorResponseFunc
		wantIsErr error
	}{
		{"valid", sink, testSuccessFn, testFailFn, nil},
		{"nil-sink", nil, testSuccessFn, testFailFn, oidc.ErrInvalidParameter},
		{"nil-sFn", sink, nil, testFailFn, oidc.ErrInvalidParameter},
		{"nil-eFn", sink, testSuccessFn, nil, oidc.ErrInvalidParameter},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := Implicit(tt.sink, tt.sFn, tt.eFn)
			if tt.wantIsErr != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantIsErr)
				return
			}
			require.NoError(err)
			assert.NotNil(got)
		})
	}
}

func Test_ImplicitResponses(t *testing.T) {
	t.Parallel()

	t.Run("page", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		sink := &testSink{}
		h, err := Implicit(sink, testSuccessFn, testFailFn)
		require.NoError(err)
		srv := httptest.NewServer(h)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/callback")
		require.NoError(err)
		defer resp.Body.Close()
		require.Equal(http.StatusOK, resp.StatusCode)
		assert.Equal("text/html; charset=utf-8", resp.Header.Get("Content-Type"))

		root, err := html.Parse(resp.Body)
		require.NoError(err)
		form, ok := scrape.Find(root, scrape.ByTag(atom.Form))
		require.True(ok)
		assert.Equal("post", scrape.Attr(form, "method"))
		assert.Equal("/callback", scrape.Attr(form, "action"))
		hrefNode, ok := scrape.Find(form, scrape.ById("href"))
		require.True(ok)
		assert.Equal("href", scrape.Attr(hrefNode, "name"))
		body, ok := scrape.Find(root, scrape.ByTag(atom.Body))
		require.True(ok)
		assert.Contains(scrape.Attr(body, "onload"), "window.location.href")
		assert.Empty(sink.Messages())
	})

	tests := []struct {
		name           string
		method         string
		href           string
		wantStatusCode int
		wantDelivered  bool
		wantRespError  string
		wantBody       string
	}{
		{
			name:           "success",
			method:         http.MethodPost,
			href:           "/callback#access_token=at&id_token=a.b.c&state=s1",
			wantStatusCode: http.StatusOK,
			wantDelivered:  true,
			wantBody:       "login successful",
		},
		{
			name:           "provider-error",
			method:         http.MethodPost,
			href:           "/callback#error=access_denied&error_description=user%20cancelled&session_state=ss",
			wantStatusCode: http.StatusUnauthorized,
			wantDelivered:  true,
			wantRespError:  "access_denied",
		},
		{
			name:           "missing-href",
			method:         http.MethodPost,
			wantStatusCode: http.StatusInternalServerError,
			wantRespError:  "internal-callback-error",
		},
		{
			name:           "missing-fragment",
			method:         http.MethodPost,
			href:           "/callback?access_token=at",
			wantStatusCode: http.StatusInternalServerError,
			wantRespError:  "internal-callback-error",
		},
		{
			name:           "method-not-allowed",
			method:         http.MethodPut,
			href:           "/callback#state=s1",
			wantStatusCode: http.StatusMethodNotAllowed,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			sink := &testSink{}
			h, err := Implicit(sink, testSuccessFn, testFailFn)
			require.NoError(err)
			srv := httptest.NewServer(h)
			defer srv.Close()

			href := tt.href
			if href != "" {
				href = srv.URL + href
			}
			form := url.Values{}
			if href != "" {
				form.Set("href", href)
			}
			req, err := http.NewRequest(tt.method, srv.URL+"/callback", strings.NewReader(form.Encode()))
			require.NoError(err)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			resp, err := srv.Client().Do(req)
			require.NoError(err)
			defer resp.Body.Close()
			contents, err := io.ReadAll(resp.Body)
			require.NoError(err)

			assert.Equal(tt.wantStatusCode, resp.StatusCode)
			if tt.wantDelivered {
				assert.Equal([]oidc.Message{
					{Data: oidc.ReadyMessage, Origin: srv.URL},
					{Data: href, Origin: srv.URL},
				}, sink.Messages())
			} else {
				assert.Empty(sink.Messages())
			}
			if tt.wantRespError != "" {
				var errResp AuthenErrorResponse
				require.NoError(json.Unmarshal(contents, &errResp))
				assert.Equal(tt.wantRespError, errResp.Error)
			}
			if tt.wantBody != "" {
				assert.Contains(string(contents), tt.wantBody)
			}
		})
	}
}

// TestImplicit_popup completes a popup authorization of an oidc.Client
// whose redirect URL is served by Implicit.
func TestImplicit_popup(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tp := oidc.StartTestProvider(t)
	callbackSrv := httptest.NewServer(nil)
	defer callbackSrv.Close()
	redirect := callbackSrv.URL + "/callback"
	tp.SetAllowedRedirectURIs([]string{redirect})

	host := oidc.NewTestHost(t, callbackSrv.URL+"/", tp.CACert())
	host.Window.SetSilent(true)
	h, err := Implicit(host.Window, testSuccessFn, testFailFn)
	require.NoError(err)
	callbackSrv.Config.Handler = h

	cfg, err := oidc.NewConfig(tp.Addr(), "test-client-id", redirect,
		oidc.WithProviderCA(tp.CACert()),
		oidc.WithDisplay(oidc.DisplayPopup),
	)
	require.NoError(err)
	c, err := oidc.NewClient(ctx, cfg, host.Capabilities())
	require.NoError(err)
	defer c.Done()

	type result struct {
		authenticated bool
		err           error
	}
	done := make(chan result, 1)
	go func() {
		s, err := c.Authorize(ctx)
		done <- result{s.IsAuthenticated(), err}
	}()
	require.Eventually(func() bool { return len(host.Window.Opened()) == 1 }, 5*time.Second, 10*time.Millisecond)

	// act as the popup: follow the provider's redirect, then post the
	// location like the callback page does.
	hc, err := sdkHttp.NewClient(tp.CACert())
	require.NoError(err)
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := hc.Get(host.Window.Opened()[0].URL)
	require.NoError(err)
	resp.Body.Close()
	location := resp.Header.Get("Location")
	require.True(strings.HasPrefix(location, redirect+"#"))

	resp, err = http.PostForm(redirect, url.Values{"href": {location}})
	require.NoError(err)
	resp.Body.Close()
	assert.Equal(http.StatusOK, resp.StatusCode)

	got := <-done
	require.NoError(got.err)
	assert.True(got.authenticated)
	assert.True(c.IsAuthenticated())
	assert.Equal(1, host.Window.Closed())
}
