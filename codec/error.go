// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package codec

import "errors"

// ErrFormat is returned when an input string or byte sequence is not a valid
// representation for the requested conversion.
var ErrFormat = errors.New("invalid format")
