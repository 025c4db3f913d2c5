// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// ErrInvalidLength is returned when a non-positive number of random bytes is
// requested.
var ErrInvalidLength = errors.New("invalid length")

// RandomBytes returns n bytes read from a cryptographically secure source.
func RandomBytes(n int) ([]byte, error) {
	const op = "id.RandomBytes"
	if n <= 0 {
		return nil, fmt.Errorf("%s: %d bytes requested: %w", op, n, ErrInvalidLength)
	}
	b, err := uuid.GenerateRandomBytes(n)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read random bytes: %w", op, err)
	}
	return b, nil
}

// New generates an ID with an optional prefix.
func New(optionalPrefix string) (string, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}
