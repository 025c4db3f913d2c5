// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"net/url"
	"sort"
	"strings"
)

// ToFormURLEncoded encodes params as key=value pairs joined by "&", sorted
// by key.  Spaces are encoded as %20.
func ToFormURLEncoded(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, escape(k)+"="+escape(params[k]))
	}
	return strings.Join(pairs, "&")
}

// ParseFormURLEncoded parses key=value pairs joined by "&".  A later pair
// replaces an earlier one with the same key; an undecodable component is
// kept as is and a pair without "=" has an empty value.
func ParseFormURLEncoded(s string) map[string]string {
	params := map[string]string{}
	if s == "" {
		return params
	}
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		params[unescape(k)] = unescape(v)
	}
	return params
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// unescape leaves "+" alone.
func unescape(s string) string {
	u, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return u
}

// URLFragment returns the part of rawURL after the last "#", or rawURL
// itself when it has none.
func URLFragment(rawURL string) string {
	if i := strings.LastIndex(rawURL, "#"); i >= 0 {
		return rawURL[i+1:]
	}
	return rawURL
}
