// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity provides the cryptographic capability behind event
// content addressing and origin attestation.
//
// Hashes are keyed BLAKE3 with ASCII domain keys, so the same bytes
// hashed as a reference (event identity) and as a content hash
// (integrity record) can never collide across domains. The domain
// keys are format constants: changing them changes every event ID in
// existence.
//
// Signatures are Ed25519 over the event's canonical encoding. A
// [Signer] wraps the homeserver's long-lived keypair together with
// its origin server name and key identifier; the keypair is loaded
// from (or generated into) the data directory at startup, with the
// private key held at 0600.
//
// This package is deliberately byte-oriented: it signs and hashes
// canonical encodings produced elsewhere (see roomgraph's append
// path, which decides exactly which event fields participate). Any
// failure here is fatal for the operation in flight — an event must
// never be persisted half-signed.
package identity
