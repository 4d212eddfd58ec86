// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage provides the ordered byte-key store that every
// Hearth subsystem persists through.
//
// The capability surface is deliberately small: point get/insert/
// remove, ordered probes ("first key greater than", "first key less
// than"), bounded prefix scans, and one atomic increment-and-fetch
// primitive for counters. Everything above this package — the event
// graph, ephemeral slots, read cursors, account records — is expressed
// purely in these terms, so the room log's causal ordering reduces to
// byte-lexicographic key ordering.
//
// Keys are built by joining UTF-8 identifiers with the 0xFF delimiter
// (a byte that cannot occur in valid UTF-8, see lib/ref) followed by
// fixed-width big-endian integers where numeric order must match byte
// order. [Key], [Prefix], and [Uint64] are the only key constructors;
// hand-concatenated keys are a bug.
//
// Two implementations are provided. [Memory] is an in-process sorted
// map for tests and ephemeral deployments. [SQLite] is the durable
// store: a single key/value table ordered by its BLOB primary key,
// pooled connections, and transparent zstd compression for large
// values.
//
// The store guarantees per-key atomicity only. Multi-key sequences
// (the append path's frontier/index writes, the slot engine's
// remove-then-insert) are serialized by their owning packages, not
// here.
package storage
