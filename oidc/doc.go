// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
oidc is a package for relying parties running the OpenID Connect implicit
flow from inside a user agent: the tokens are delivered to the client in
the fragment of the redirect URL and are verified, stored and used by the
client itself.

Primary types provided by the package

* Config: the provider parameters of a client (issuer, client id,
redirect URL, response type, scopes, display mode and optional
verification keys).

* Capabilities: the host collaborators a client is built from.  A browser
bridge or a native host provides http access, the window location, the
window and document, and a persistent storage area.  See TestHost for an
in-memory host.

* Client: runs the flow.  Authorize starts an authorization request, in
the current window or in a popup, and completes it when the location
carries a response.  Callback verifies a response (RS256 signatures, nonce,
at_hash) and adopts it as the Session, which is encrypted at rest and
shared with other browsing contexts of the same origin.  Signout,
CheckSession, Headers and UserInfo use the session.

* TestProvider: an in-process provider issuing RS256 signed tokens, for
tests.

The oidc.callback package

The callback package includes an http.HandlerFunc serving the redirect URL
of a native host.  The page it serves posts its location, fragment
included, back to the handler, which delivers it to the window that is
waiting for the popup.

Examples

* Implicit flow CLI: oidc/examples/cli
*/
package oidc
