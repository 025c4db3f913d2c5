// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package codec

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

const hexChars = "0123456789abcdef"

// BytesToHex returns the lowercase hex representation of b.
func BytesToHex(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 2)
	for _, c := range b {
		sb.WriteByte(hexChars[c>>4])
		sb.WriteByte(hexChars[c&0x0f])
	}
	return sb.String()
}

// HexToBytes decodes a hex string of even length.  Both lower and upper case
// digits are accepted.
func HexToBytes(s string) ([]byte, error) {
	const op = "codec.HexToBytes"
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%s: hex string %q must have an even number of characters: %w", op, s, ErrFormat)
	}
	buf := make([]byte, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		hi, err := hexDigit(s[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		lo, err := hexDigit(s[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		buf[i/2] = hi<<4 | lo
	}
	return buf, nil
}

func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("character %q is not a valid hex character: %w", c, ErrFormat)
	}
}

// utf16 is little endian without a byte order mark, the layout of a
// Uint16Array holding a string's code units.
var utf16 = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// StringToUTF16 returns the UTF-16 code units of s, two bytes per unit.
func StringToUTF16(s string) []byte {
	b, err := utf16.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// the encoder replaces invalid UTF-8 rather than failing
		return nil
	}
	return b
}

// UTF16ToString decodes UTF-16 code units produced by StringToUTF16.
func UTF16ToString(b []byte) (string, error) {
	const op = "codec.UTF16ToString"
	if len(b)%2 != 0 {
		return "", fmt.Errorf("%s: odd number of bytes (%d): %w", op, len(b), ErrFormat)
	}
	s, err := utf16.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", op, err, ErrFormat)
	}
	return string(s), nil
}

// StringToUTF8 returns the UTF-8 bytes of s.
func StringToUTF8(s string) []byte {
	return []byte(s)
}

// UTF8ToString returns b as a string if it's valid UTF-8.
func UTF8ToString(b []byte) (string, error) {
	const op = "codec.UTF8ToString"
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%s: invalid utf-8 sequence: %w", op, ErrFormat)
	}
	return string(b), nil
}

// ASCIIToBytes returns the bytes of s, which must only contain ASCII
// characters.
func ASCIIToBytes(s string) ([]byte, error) {
	const op = "codec.ASCIIToBytes"
	buf := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return nil, fmt.Errorf("%s: non ascii character at index %d: %w", op, i, ErrFormat)
		}
		buf[i] = s[i]
	}
	return buf, nil
}

// BytesToASCII returns b as a string if every byte is ASCII.
func BytesToASCII(b []byte) (string, error) {
	const op = "codec.BytesToASCII"
	for i, c := range b {
		if c > 127 {
			return "", fmt.Errorf("%s: non ascii character %d at index %d: %w", op, c, i, ErrFormat)
		}
	}
	return string(b), nil
}

// Base64Encode returns the padded standard base64 encoding of b.
func Base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Base64Decode decodes padded standard base64.
func Base64Decode(s string) ([]byte, error) {
	const op = "codec.Base64Decode"
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, ErrFormat)
	}
	return b, nil
}

// Base64URLEncode returns the url safe base64 encoding of b with the padding
// removed.
func Base64URLEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Base64URLDecode decodes url safe base64.  Missing padding is restored to
// the next multiple of four characters before decoding.
func Base64URLDecode(s string) ([]byte, error) {
	const op = "codec.Base64URLDecode"
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat("=", 4-n)
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, ErrFormat)
	}
	return b, nil
}

// SHA256URL returns the base64url encoded SHA-256 digest of the UTF-8 bytes
// of s.
func SHA256URL(s string) string {
	sum := sha256.Sum256(StringToUTF8(s))
	return Base64URLEncode(sum[:])
}
