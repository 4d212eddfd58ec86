// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Hearth's canonical serialization: CBOR with
// Core Deterministic Encoding (RFC 8949 §4.2).
//
// Determinism is load-bearing here, not a nicety. Event identity is
// content-derived — the reference hash is computed over the encoded
// event, and two encodings of the same logical event must be
// byte-identical or identical events would receive different IDs.
// The same encoder serializes every value the storage layer persists,
// so stored bytes are stable across process restarts and Go versions.
//
// Consumers import only this package, never fxamacker/cbor directly.
package codec
