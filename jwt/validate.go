// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"fmt"
)

// ValidateAndParseToken verifies token with ks and returns its claims.  An
// empty token is not an error and yields nil claims.
func ValidateAndParseToken(ctx context.Context, token string, ks KeySet) (map[string]interface{}, error) {
	const op = "jwt.ValidateAndParseToken"
	if token == "" {
		return nil, nil
	}
	if ks == nil {
		return nil, fmt.Errorf("%s: missing key set: %w", op, ErrNilParameter)
	}
	claims, err := ks.VerifySignature(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}
