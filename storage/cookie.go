// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

// Jar is an in-memory CookieJar for one origin.  Expired cookies are not
// returned.
type Jar struct {
	origin *url.URL
	jar    *cookiejar.Jar
}

var _ CookieJar = (*Jar)(nil)

// NewCookieJar returns an empty jar for origin, e.g. "https://app.example.com".
func NewCookieJar(origin string) (*Jar, error) {
	const op = "storage.NewCookieJar"
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidParameter, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: origin %q must be absolute: %w", op, origin, ErrInvalidParameter)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Jar{origin: &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, jar: jar}, nil
}

// SetCookie implements CookieJar.  A cookie with an expiry in the past
// removes the cookie.
func (j *Jar) SetCookie(c *http.Cookie) error {
	const op = "Jar.SetCookie"
	if c == nil || c.Name == "" {
		return fmt.Errorf("%s: missing cookie name: %w", op, ErrInvalidParameter)
	}
	cc := *c
	if cc.Path == "" {
		cc.Path = "/"
	}
	j.jar.SetCookies(j.origin, []*http.Cookie{&cc})
	return nil
}

// Cookie implements CookieJar.
func (j *Jar) Cookie(name string) (*http.Cookie, error) {
	const op = "Jar.Cookie"
	for _, c := range j.jar.Cookies(j.origin) {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%s: %q: %w", op, name, ErrNotFound)
}
