// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package jwt frames, verifies and decodes compact serialized JWS tokens.

Split and DecodeSegment are purely structural.  A KeySet verifies a token's
signature and only then decodes its payload into claims; the RSAKeySet always
verifies RSASSA-PKCS1-v1_5 with SHA-256 against its configured keys and never
consults the algorithm declared in the token header.

ValidateAndParseToken is the entry point used by the oidc package: an empty
token yields no claims and no error, any other token must verify.
*/
package jwt
