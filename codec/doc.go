// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
codec converts byte sequences to and from the textual representations used
throughout the authorization flow: hex, UTF-16 code units, UTF-8, ASCII,
base64 and unpadded base64url.

All conversions are deterministic and free of side effects.  Decoders return
an error wrapping ErrFormat when their input isn't a valid encoding.
*/
package codec
