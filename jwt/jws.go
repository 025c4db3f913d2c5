// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/henrjk/connect-js/codec"
)

// Segments are the three base64url encoded parts of a compact JWS.
type Segments struct {
	Header    string
	Payload   string
	Signature string
}

// SigningInput returns the header and payload segments joined by a dot, the
// input the signature was computed over.
func (s Segments) SigningInput() string {
	return s.Header + "." + s.Payload
}

// Split splits a compact serialized token into its segments.  The token must
// have exactly three non-empty dot separated segments.
func Split(token string) (Segments, error) {
	const op = "jwt.Split"
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Segments{}, fmt.Errorf("%s: token has %d dot separated sections where 3 are expected: %w", op, len(parts), ErrMalformedToken)
	}
	switch {
	case parts[0] == "":
		return Segments{}, fmt.Errorf("%s: token misses header: %w", op, ErrMalformedToken)
	case parts[1] == "":
		return Segments{}, fmt.Errorf("%s: token misses payload: %w", op, ErrMalformedToken)
	case parts[2] == "":
		return Segments{}, fmt.Errorf("%s: token misses signature: %w", op, ErrMalformedToken)
	}
	return Segments{
		Header:    parts[0],
		Payload:   parts[1],
		Signature: parts[2],
	}, nil
}

// DecodeSegment base64url decodes a segment and parses it as a JSON object.
func DecodeSegment(segment string) (map[string]interface{}, error) {
	const op = "jwt.DecodeSegment"
	raw, err := codec.Base64URLDecode(segment)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}
	s, err := codec.UTF8ToString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}
	var claims map[string]interface{}
	if err := json.Unmarshal([]byte(s), &claims); err != nil {
		return nil, fmt.Errorf("%s: segment is not a json object: %w: %w", op, ErrMalformedToken, err)
	}
	if claims == nil {
		return nil, fmt.Errorf("%s: segment is null: %w", op, ErrMalformedToken)
	}
	return claims, nil
}
