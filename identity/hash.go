// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"encoding/base64"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/hearth/lib/ref"
)

// Hash is a 32-byte keyed BLAKE3 digest.
type Hash [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures the same input bytes produce different digests
// in different contexts. The byte values are the ASCII encoding of
// the domain name, zero-padded to 32 bytes — readable in hex dumps,
// and BLAKE3 keyed mode treats the key as opaque either way.
type domainKey [32]byte

var (
	referenceDomainKey = domainKey{
		'h', 'e', 'a', 'r', 't', 'h', '.', 'e', 'v', 'e', 'n', 't', '.',
		'r', 'e', 'f', 'e', 'r', 'e', 'n', 'c', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	contentDomainKey = domainKey{
		'h', 'e', 'a', 'r', 't', 'h', '.', 'e', 'v', 'e', 'n', 't', '.',
		'c', 'o', 'n', 't', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

func keyedHash(key domainKey, data []byte) Hash {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		// NewKeyed fails only on a wrong key length; domain keys are
		// fixed 32-byte constants.
		panic(fmt.Sprintf("identity: keyed hasher: %v", err))
	}
	hasher.Write(data)

	var digest Hash
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// ReferenceHash computes the reference-domain digest of an event's
// canonical encoding. The event ID is derived from this digest, so
// two events with identical canonical content receive identical IDs.
func ReferenceHash(canonical []byte) Hash {
	return keyedHash(referenceDomainKey, canonical)
}

// ContentHash computes the content-domain digest recorded in an
// event's hashes map.
func ContentHash(canonical []byte) Hash {
	return keyedHash(contentDomainKey, canonical)
}

// Encode returns the unpadded base64url form of the digest, the
// encoding used inside event IDs and hashes/signatures maps.
func (h Hash) Encode() string {
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// EventID returns the content-derived event ID for a reference-domain
// digest: "$" followed by the encoded digest.
func (h Hash) EventID() ref.EventID {
	return ref.MustParseEventID("$" + h.Encode())
}
