// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"strings"

	"github.com/henrjk/connect-js/codec"
	"github.com/henrjk/connect-js/sdk/id"
)

const (
	keySize = 16
	ivSize  = aes.BlockSize
)

// Locator holds the raw AES key and IV that unlock a sealed session.
type Locator struct {
	IV  []byte
	Key []byte
}

// String returns base64(iv) + "." + base64(key).
func (l Locator) String() string {
	return codec.Base64Encode(l.IV) + "." + codec.Base64Encode(l.Key)
}

// ParseLocator parses the output of Locator.String.  Anything but two
// base64 fields of the right sizes is a codec.ErrFormat.
func ParseLocator(s string) (Locator, error) {
	const op = "session.ParseLocator"
	fields := strings.Split(s, ".")
	if len(fields) != 2 {
		return Locator{}, fmt.Errorf("%s: expected <base64>.<base64>: %w", op, codec.ErrFormat)
	}
	iv, err := codec.Base64Decode(fields[0])
	if err != nil {
		return Locator{}, fmt.Errorf("%s: iv: %w", op, err)
	}
	key, err := codec.Base64Decode(fields[1])
	if err != nil {
		return Locator{}, fmt.Errorf("%s: key: %w", op, err)
	}
	if len(iv) != ivSize || len(key) != keySize {
		return Locator{}, fmt.Errorf("%s: iv must be %d and key %d bytes: %w", op, ivSize, keySize, codec.ErrFormat)
	}
	return Locator{IV: iv, Key: key}, nil
}

// Sealed is a ciphertext and the Locator needed to decrypt it.
type Sealed struct {
	Locator    Locator
	Ciphertext []byte
}

// Encrypt encrypts plaintext with AES-128-CBC and PKCS#7 padding under a
// newly generated key and IV.
func Encrypt(plaintext []byte) (*Sealed, error) {
	const op = "session.Encrypt"
	key, err := id.RandomBytes(keySize)
	if err != nil {
		return nil, fmt.Errorf("%s: key: %w", op, err)
	}
	iv, err := id.RandomBytes(ivSize)
	if err != nil {
		return nil, fmt.Errorf("%s: iv: %w", op, err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	padded := pad(plaintext, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)
	return &Sealed{
		Locator:    Locator{IV: iv, Key: key},
		Ciphertext: ct,
	}, nil
}

// Decrypt returns the plaintext of s.
func Decrypt(s *Sealed) ([]byte, error) {
	const op = "session.Decrypt"
	if s == nil {
		return nil, fmt.Errorf("%s: missing sealed session: %w", op, ErrNilParameter)
	}
	if len(s.Locator.IV) != ivSize {
		return nil, fmt.Errorf("%s: iv must be %d bytes: %w", op, ivSize, ErrInvalidParameter)
	}
	block, err := aes.NewCipher(s.Locator.Key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidParameter, err)
	}
	if len(s.Ciphertext) == 0 || len(s.Ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%s: ciphertext is not a multiple of the block size: %w", op, ErrDecrypt)
	}
	pt := make([]byte, len(s.Ciphertext))
	cipher.NewCBCDecrypter(block, s.Locator.IV).CryptBlocks(pt, s.Ciphertext)
	pt, err = unpad(pt, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pt, nil
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("invalid padding: %w", ErrDecrypt)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("invalid padding: %w", ErrDecrypt)
		}
	}
	return b[:len(b)-n], nil
}
