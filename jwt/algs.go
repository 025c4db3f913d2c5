// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import "fmt"

// Alg represents a signing algorithm.
type Alg string

// RS256 is RSASSA-PKCS1-v1_5 using SHA-256, the only algorithm tokens are
// verified with.
const RS256 Alg = "RS256"

var supportedAlgorithms = map[Alg]bool{
	RS256: true,
}

// SupportedSigningAlgorithm returns an error if any of the given algs
// are not supported signing algorithms.
func SupportedSigningAlgorithm(algs ...Alg) error {
	for _, a := range algs {
		if !supportedAlgorithms[a] {
			return fmt.Errorf("unsupported signing algorithm %q: %w", a, ErrUnsupportedAlg)
		}
	}
	return nil
}
