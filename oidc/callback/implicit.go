// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/henrjk/connect-js/oidc"
)

// MessageSink receives the messages of the callback page.  The window
// waiting for the popup implements it, see oidc.TestWindow.Deliver.
type MessageSink interface {
	Deliver(oidc.Message)
}

var page = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><title>Signing in</title></head>
<body onload="document.getElementById('href').value = window.location.href; document.forms[0].submit()">
<form method="post" action="{{.Action}}">
<input type="hidden" id="href" name="href" value="">
<noscript><p>JavaScript is required to complete the sign in.</p></noscript>
</form>
</body>
</html>
`))

// Implicit creates an oidc implicit flow callback handler.
//
// A GET request is answered with a page which posts its location, the
// response fragment included, back to the same path.  For the posted
// location the handler delivers oidc.ReadyMessage and then the location to
// sink, with the handler's origin as message origin, and calls sFn, or eFn
// when the fragment is an error response.  The location is delivered in
// both cases since the client records the session state of error
// responses.
func Implicit(sink MessageSink, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.Implicit"
	switch {
	case sink == nil:
		return nil, fmt.Errorf("%s: message sink is nil: %w", op, oidc.ErrInvalidParameter)
	case sFn == nil:
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, oidc.ErrInvalidParameter)
	case eFn == nil:
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, oidc.ErrInvalidParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_ = page.Execute(w, struct{ Action string }{Action: req.URL.Path})
			return
		case http.MethodPost:
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		href := req.FormValue("href")
		if href == "" {
			eFn("", nil, fmt.Errorf("%s: missing href: %w", op, oidc.ErrInvalidParameter), w, req)
			return
		}
		if !strings.Contains(href, "#") {
			eFn("", nil, fmt.Errorf("%s: location has no response fragment: %w", op, oidc.ErrInvalidParameter), w, req)
			return
		}
		params := oidc.ParseFormURLEncoded(oidc.URLFragment(href))
		state := params["state"]

		origin := requestOrigin(req)
		sink.Deliver(oidc.Message{Data: oidc.ReadyMessage, Origin: origin})
		sink.Deliver(oidc.Message{Data: href, Origin: origin})

		if code := params["error"]; code != "" {
			reqError := &AuthenErrorResponse{
				Error:       code,
				Description: params["error_description"],
				Uri:         params["error_uri"],
			}
			eFn(state, reqError, nil, w, req)
			return
		}
		sFn(state, w, req)
	}, nil
}

func requestOrigin(req *http.Request) string {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + req.Host
}
