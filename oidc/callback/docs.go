// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides the redirect URL handler (in the form
of an http.HandlerFunc) of a native host running the OIDC implicit flow.

The authorization response is carried in the URL fragment, which never
reaches a server, so the handler serves a page that posts its own location
back to the handler.  The posted location is delivered to the MessageSink
standing in for the window that opened the popup.
*/
package callback
