// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

// Session is the authorization response adopted by a client together with
// the claims decoded from its tokens and the user's profile.  The zero
// Session is unauthenticated.
type Session struct {
	AccessToken  string `json:"access_token,omitempty"`
	IdToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	SessionState string `json:"session_state,omitempty"`
	Scope        string `json:"scope,omitempty"`
	State        string `json:"state,omitempty"`

	AccessClaims map[string]interface{} `json:"access_claims,omitempty"`
	IdClaims     map[string]interface{} `json:"id_claims,omitempty"`
	UserInfo     map[string]interface{} `json:"userInfo,omitempty"`
}

// IsAuthenticated reports whether the session holds an id token.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.IdToken != ""
}

// Clone returns a copy of s.  Claim maps are shared.
func (s *Session) Clone() *Session {
	if s == nil {
		return &Session{}
	}
	c := *s
	return &c
}
