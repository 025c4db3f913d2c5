// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package codec

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRandomInputs(t *testing.T) [][]byte {
	t.Helper()
	inputs := [][]byte{
		{},
		{0x00},
		{0xff},
		{0x00, 0x01, 0x7f, 0x80, 0xfe, 0xff},
	}
	for _, n := range []int{1, 2, 3, 15, 16, 17, 255} {
		b := make([]byte, n)
		_, err := rand.Read(b)
		require.NoError(t, err)
		inputs = append(inputs, b)
	}
	return inputs
}

func TestHex_RoundTrip(t *testing.T) {
	t.Parallel()
	for _, in := range testRandomInputs(t) {
		assert, require := assert.New(t), require.New(t)
		h := BytesToHex(in)
		assert.Len(h, len(in)*2)
		got, err := HexToBytes(h)
		require.NoError(err)
		assert.Equal(in, got)
	}
}

func TestBytesToHex(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("", BytesToHex(nil))
	assert.Equal("00017f80feff", BytesToHex([]byte{0x00, 0x01, 0x7f, 0x80, 0xfe, 0xff}))
}

func TestHexToBytes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{name: "empty", in: "", want: []byte{}},
		{name: "lower", in: "0aff", want: []byte{0x0a, 0xff}},
		{name: "upper", in: "0AFF", want: []byte{0x0a, 0xff}},
		{name: "odd-1", in: "0", wantErr: true},
		{name: "odd-3", in: "012", wantErr: true},
		{name: "non-hex-first", in: "xf", wantErr: true},
		{name: "non-hex-second", in: "fx", wantErr: true},
		{name: "space", in: "0 ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := HexToBytes(tt.in)
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIs(err, ErrFormat)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
	t.Run("case-normalized", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		b, err := HexToBytes("DEADbeef")
		require.NoError(err)
		assert.Equal("deadbeef", BytesToHex(b))
	})
}

func TestUTF16(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{name: "empty", in: "", want: []byte{}},
		{name: "ascii", in: "ab", want: []byte{'a', 0, 'b', 0}},
		{name: "bmp", in: "é", want: []byte{0xe9, 0x00}},
		{name: "surrogate-pair", in: "😀", want: []byte{0x3d, 0xd8, 0x00, 0xde}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got := StringToUTF16(tt.in)
			assert.Equal(len(tt.want), len(got))
			if len(tt.want) > 0 {
				assert.Equal(tt.want, got)
			}
			s, err := UTF16ToString(got)
			require.NoError(err)
			assert.Equal(tt.in, s)
		})
	}
	t.Run("json-round-trip", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		const in = `{"access_token":"random","userInfo":{"name":"Zoë"}}`
		got, err := UTF16ToString(StringToUTF16(in))
		require.NoError(err)
		assert.Equal(in, got)
	})
	t.Run("odd-length", func(t *testing.T) {
		assert := assert.New(t)
		_, err := UTF16ToString([]byte{'a', 0, 'b'})
		assert.ErrorIs(err, ErrFormat)
	})
}

func TestUTF8(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	const in = "nonce-Zoë"
	got, err := UTF8ToString(StringToUTF8(in))
	require.NoError(err)
	assert.Equal(in, got)

	_, err = UTF8ToString([]byte{0xff, 0xfe})
	assert.ErrorIs(err, ErrFormat)
}

func TestASCII(t *testing.T) {
	t.Parallel()
	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		b, err := ASCIIToBytes("eyJhbGciOiJSUzI1NiJ9.e30")
		require.NoError(err)
		s, err := BytesToASCII(b)
		require.NoError(err)
		assert.Equal("eyJhbGciOiJSUzI1NiJ9.e30", s)
	})
	t.Run("non-ascii-string", func(t *testing.T) {
		assert := assert.New(t)
		_, err := ASCIIToBytes("abé")
		assert.ErrorIs(err, ErrFormat)
	})
	t.Run("non-ascii-bytes", func(t *testing.T) {
		assert := assert.New(t)
		_, err := BytesToASCII([]byte{'a', 0x80})
		assert.ErrorIs(err, ErrFormat)
	})
}

func TestBase64_RoundTrip(t *testing.T) {
	t.Parallel()
	for _, in := range testRandomInputs(t) {
		assert, require := assert.New(t), require.New(t)
		got, err := Base64Decode(Base64Encode(in))
		require.NoError(err)
		assert.Equal(len(in), len(got))
		if len(in) > 0 {
			assert.Equal(in, got)
		}
	}
	_, err := Base64Decode("!!!!")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestBase64URL_RoundTrip(t *testing.T) {
	t.Parallel()
	for _, in := range testRandomInputs(t) {
		assert, require := assert.New(t), require.New(t)
		enc := Base64URLEncode(in)
		assert.False(strings.ContainsAny(enc, "+/="), "encoding %q must be url safe and unpadded", enc)
		got, err := Base64URLDecode(enc)
		require.NoError(err)
		assert.Equal(len(in), len(got))
		if len(in) > 0 {
			assert.Equal(in, got)
		}
	}
}

func TestBase64URL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{name: "no-padding-needed", in: "YWJj", want: []byte("abc")},
		{name: "one-pad", in: "YWI", want: []byte("ab")},
		{name: "two-pad", in: "YQ", want: []byte("a")},
		{name: "padded-input", in: "YQ==", want: []byte("a")},
		{name: "url-safe-chars", in: "-_8", want: []byte{0xfb, 0xff}},
		{name: "std-chars", in: "+/8", wantErr: true},
		{name: "invalid-length", in: "Y", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := Base64URLDecode(tt.in)
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIs(err, ErrFormat)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
	assert.Equal(t, "-_8", Base64URLEncode([]byte{0xfb, 0xff}))
}

func TestSHA256URL(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	// sha256("abc") in base64url
	assert.Equal("ungWv48Bz-pBQUDeXa4iI7ADYaOWF3qctBD_YfIAFa0", SHA256URL("abc"))
	assert.Len(SHA256URL("0123456789"), 43)
}
