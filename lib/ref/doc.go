// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable identity references
// for Matrix identifiers: rooms, users, events, and server names.
//
// Every identifier that crosses a Hearth API boundary is parsed into
// one of these types exactly once, at the boundary. Internal code
// never passes raw identifier strings around — the types prevent
// accidental confusion between a room ID, a user ID, and an access
// token at compile time.
//
// All constructors validate structural format only: sigil, localpart
// presence, server suffix. They do not resolve or verify identifiers
// against any store. Once constructed, a ref is immutable.
//
// Validated identifiers are guaranteed to be valid UTF-8 with no
// control characters, which means the byte 0xFF can never appear in
// them. The storage layer relies on this when it joins identifiers
// with a 0xFF delimiter to build ordered keys.
//
// JSON and CBOR serialization use the canonical string form via
// encoding.TextMarshaler.
package ref
