// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package session keeps an authenticated Session at rest.

Serialize encrypts the JSON form of a Session with a fresh AES-128-CBC key
and IV.  The key and IV are written as a Locator to the "anvil.connect"
cookie, which expires with the session, while the ciphertext is written to
the persistent storage area.  Neither half alone reveals the session.

Deserialize reverses this and never fails: any missing or malformed half
yields an empty Session.
*/
package session
