// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package accounts stores local user accounts: credentials, access
// tokens, devices, profile fields, and each user's membership lists.
//
// Key layout, namespaces joined with the storage delimiter:
//
//	password    0xFF <user>                → argon2id hash
//	token       0xFF <token>               → user
//	devicetoken 0xFF <user> 0xFF <device>  → token
//	device      0xFF <user> 0xFF <device>  → (empty)
//	displayname 0xFF <user>                → name
//	avatarurl   0xFF <user>                → URL
//	joined      0xFF <user> 0xFF <room>    → (empty)
//	joinedby    0xFF <room> 0xFF <user>    → (empty)
//	invited     0xFF <user> 0xFF <room>    → (empty)
//	invitedby   0xFF <room> 0xFF <user>    → (empty)
//	left        0xFF <user> 0xFF <room>    → (empty)
//
// Membership lists are denormalized both ways so "rooms for user" and
// "users in room" are each a single prefix scan. Membership changes
// also append an m.room.member event to the room's graph; the lists
// here are the fast lookup, the graph is the record.
package accounts
