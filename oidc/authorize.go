// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/oauth2"

	"github.com/henrjk/connect-js/session"
)

// URI creates a new nonce and returns the authorization request URL for
// it.  An empty endpoint selects the authorization endpoint, any other
// endpoint is taken relative to the issuer.  params are added to, or
// replace, the request parameters; the nonce is always the created one.
func (c *Client) URI(ctx context.Context, endpoint string, params map[string]string) (string, error) {
	const op = "Client.URI"
	cfg, eps := c.Config(), c.Endpoints()
	authURL := eps.Authorization
	if endpoint != "" {
		authURL = cfg.Issuer + "/" + strings.TrimPrefix(endpoint, "/")
	}
	n, err := c.nonces.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: unable to create nonce: %w", op, err)
	}
	oauth2Config := oauth2.Config{
		ClientID:    cfg.ClientId,
		RedirectURL: cfg.RedirectUrl,
		Scopes:      cfg.Scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: authURL},
	}
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("response_type", cfg.ResponseType),
	}
	for k, v := range params {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	opts = append(opts, oauth2.SetAuthURLParam("nonce", n))
	return oauth2Config.AuthCodeURL("", opts...), nil
}

// Authorize runs the authorization flow.
//
// When the location carries a response fragment it is handed to Callback.
// Otherwise the current path is stored as the destination and the
// authorization request is started: in page display the window navigates
// to the provider and Authorize returns a nil Session; in popup display a
// popup is opened and Authorize blocks until the popup's callback page
// posts its location, or until the client becomes authenticated by other
// means, whichever happens first.  There is no timeout besides ctx.
func (c *Client) Authorize(ctx context.Context) (*session.Session, error) {
	const op = "Client.Authorize"
	if hash := strings.TrimPrefix(c.caps.Location.Hash(), "#"); hash != "" {
		s, err := c.Callback(ctx, ParseFormURLEncoded(hash))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, nil
	}

	if path := c.caps.Location.Path(); path != "" {
		if err := c.SetDestination(ctx, path); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	uri, err := c.URI(ctx, "", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	win := c.caps.DOM.Window()
	c.logger.Debug("authorize", "display", c.Config().Display)

	if c.Config().Display == DisplayPopup {
		s, err := c.authorizePopup(ctx, win, uri)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, nil
	}
	if err := win.Navigate(ctx, uri); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nil, nil
}

// popupCompletion is either the callback location posted by the popup or
// the session of an authentication completed elsewhere.
type popupCompletion struct {
	href    string
	session *session.Session
}

func (c *Client) authorizePopup(ctx context.Context, win Window, uri string) (*session.Session, error) {
	const op = "Client.authorizePopup"
	allowedOrigin := origin(c.Config().RedirectUrl)

	r := newRace[popupCompletion]()
	r.subscribe(func(deliver func(popupCompletion)) func() {
		return win.OnMessage(func(m Message) {
			if m.Data == ReadyMessage {
				return
			}
			if m.Origin != "" && m.Origin != allowedOrigin {
				c.logger.Debug("ignoring message", "origin", m.Origin)
				return
			}
			deliver(popupCompletion{href: m.Data})
		})
	})
	r.subscribe(func(deliver func(popupCompletion)) func() {
		return c.OnceAuthenticated(func(s *session.Session) {
			deliver(popupCompletion{session: s})
		})
	})

	popup, err := win.Open(ctx, uri, popupName, PopupFeatures(win.Metrics(), popupWidth, popupHeight))
	if err != nil {
		r.stop()
		return nil, fmt.Errorf("%s: unable to open popup: %w", op, err)
	}
	done, err := r.wait(ctx)
	if popup != nil {
		if err := popup.Close(); err != nil {
			c.logger.Debug("unable to close popup", "error", err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if done.session != nil {
		return done.session, nil
	}
	return c.Callback(ctx, ParseFormURLEncoded(URLFragment(done.href)))
}

// Signout clears the session and navigates to the provider's end session
// endpoint with the current id token as hint.  The provider redirects back
// to path, or "/", on the current origin.  A non-empty path is stored as
// destination, otherwise a stored destination is consumed.  Clearing is
// best effort; only a navigation failure is returned.
func (c *Client) Signout(ctx context.Context, path string) error {
	const op = "Client.Signout"
	win := c.caps.DOM.Window()
	u, err := url.Parse(win.Href())
	if err != nil {
		return fmt.Errorf("%s: window location is invalid: %w", op, ErrInvalidParameter)
	}
	redirect := url.URL{Scheme: u.Scheme, Host: u.Host, Path: path}
	if path == "" {
		redirect.Path = "/"
	}

	var result *multierror.Error
	if path != "" {
		if err := c.SetDestination(ctx, path); err != nil {
			result = multierror.Append(result, err)
		}
	} else if _, err := c.ConsumeDestination(ctx); err != nil {
		result = multierror.Append(result, err)
	}

	idToken := c.Session().IdToken
	if err := c.Reset(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		c.logger.Warn("signout could not clear all state", "error", err)
	}

	endSession := c.Endpoints().EndSession
	sep := "?"
	if strings.Contains(endSession, "?") {
		sep = "&"
	}
	signoutURL := endSession + sep + url.Values{
		"post_logout_redirect_uri": {redirect.String()},
		"id_token_hint":            {idToken},
	}.Encode()
	c.logger.Debug("signout", "id_token", IdToken(idToken))
	if err := win.Navigate(ctx, signoutURL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
