// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJar(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	j, err := NewCookieJar("https://app.example.com/some/path")
	require.NoError(err)

	_, err = j.Cookie(CookieSecret)
	assert.ErrorIs(err, ErrNotFound)

	require.NoError(j.SetCookie(&http.Cookie{
		Name:    CookieSecret,
		Value:   "iv.key",
		Expires: time.Now().Add(time.Hour),
	}))
	c, err := j.Cookie(CookieSecret)
	require.NoError(err)
	assert.Equal("iv.key", c.Value)

	require.NoError(j.SetCookie(&http.Cookie{
		Name:    CookieSecret,
		Value:   "",
		Expires: time.Unix(1, 0),
	}))
	_, err = j.Cookie(CookieSecret)
	assert.ErrorIs(err, ErrNotFound)

	assert.ErrorIs(j.SetCookie(nil), ErrInvalidParameter)
}

func TestNewCookieJar(t *testing.T) {
	t.Parallel()
	_, err := NewCookieJar("app.example.com")
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewCookieJar("%%")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
