// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package storage defines the persistent key-value area and the document
cookie the session and nonce managers keep their state in.

A Memory is one browsing context's view of a shared area.  Writes made
through a view are visible to every view of the area and are delivered as
Events to the watchers of all the other views, mirroring the storage event a
browser dispatches to other windows of the same origin.

The bolt subpackage provides a durable Storage that several processes can
share.
*/
package storage
