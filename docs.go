// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// connect provides a collection of related packages which run the OpenID
// Connect implicit flow on behalf of a client: token verification, nonce
// replay protection, an encrypted session at rest and the flow
// orchestration, over host capabilities supplied by the caller.
//
// See oidc/doc.go
package connect
