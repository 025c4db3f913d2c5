// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"
)

// SuccessResponseFunc is used by Implicit to create a http response once
// the callback page posted a successful authorization response.
//
// The function state parameter will contain the state that was returned as
// part of the response, if any.  The function should use the
// http.ResponseWriter to send back whatever content (headers, html, JSON,
// etc) it wishes to the popup.  The response has not been verified yet;
// that happens when the delivered location reaches the oidc.Client.
type SuccessResponseFunc func(state string, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by Implicit to create a http response when the
// callback fails.
//
// The function receives the state returned as part of the oidc authentication
// response.  It also gets parameters for the oidc authentication error response
// and/or the callback error raised while processing the request.  The function
// should use the http.ResponseWriter to send back whatever content (headers,
// html, JSON, etc) it wishes to the popup.
type ErrorResponseFunc func(state string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthenErrorResponse struct {
	Error       string
	Description string
	Uri         string
}
