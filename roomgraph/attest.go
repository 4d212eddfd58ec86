// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomgraph

import (
	"crypto/ed25519"
	"fmt"

	"github.com/bureau-foundation/hearth/identity"
	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/ref"
)

// zeroEventID is the blank ID substituted while computing the
// reference hash.
var zeroEventID ref.EventID

// canonicalEncoding returns the deterministic CBOR form of the event
// with the attestation fields stripped: the event ID as derived so
// far, no hashes, no signatures. Both the reference hash (over the
// form with an empty event ID) and the content hash and signature
// (over the form with the final event ID) are computed on this
// encoding.
func canonicalEncoding(pdu *PDU) ([]byte, error) {
	stripped := *pdu
	stripped.Hashes = nil
	stripped.Signatures = nil
	encoded, err := codec.Marshal(&stripped)
	if err != nil {
		return nil, fmt.Errorf("roomgraph: canonical encoding of %s event: %w", pdu.Kind, err)
	}
	return encoded, nil
}

// attest derives the event's identity and attaches the attestation:
// the event ID from the reference hash of the ID-less canonical form,
// then the content hash and origin signature over the canonical form
// that includes the ID. Mutates pdu in place.
func attest(pdu *PDU, signer *identity.Signer) error {
	withoutID, err := canonicalEncoding(pdu)
	if err != nil {
		return err
	}
	pdu.EventID = identity.ReferenceHash(withoutID).EventID()

	withID, err := canonicalEncoding(pdu)
	if err != nil {
		return err
	}
	pdu.Hashes = map[string]string{
		identity.HashAlgorithm: identity.ContentHash(withID).Encode(),
	}
	pdu.Signatures = map[string]map[string]string{
		signer.Origin().String(): {
			signer.KeyID(): signer.Sign(withID),
		},
	}
	return nil
}

// VerifyAttestation checks a stored event end to end: the event ID
// matches the reference hash, the recorded content hash matches, and
// the origin's signature verifies under publicKey. The keyID names
// which signature in the origin's map to check.
func VerifyAttestation(pdu *PDU, publicKey ed25519.PublicKey, keyID string) error {
	withID, err := canonicalEncoding(pdu)
	if err != nil {
		return err
	}

	recorded, ok := pdu.Hashes[identity.HashAlgorithm]
	if !ok {
		return fmt.Errorf("roomgraph: event %s has no %s content hash", pdu.EventID, identity.HashAlgorithm)
	}
	if computed := identity.ContentHash(withID).Encode(); computed != recorded {
		return fmt.Errorf("roomgraph: event %s content hash mismatch", pdu.EventID)
	}

	originSignatures, ok := pdu.Signatures[pdu.Origin.String()]
	if !ok {
		return fmt.Errorf("roomgraph: event %s has no signature from origin %s", pdu.EventID, pdu.Origin)
	}
	signature, ok := originSignatures[keyID]
	if !ok {
		return fmt.Errorf("roomgraph: event %s has no signature under key %s", pdu.EventID, keyID)
	}
	if err := identity.Verify(publicKey, withID, signature); err != nil {
		return fmt.Errorf("roomgraph: event %s: %w", pdu.EventID, err)
	}

	// The ID itself: recompute the reference hash over the form with
	// the ID blanked out.
	unattested := *pdu
	unattested.EventID = zeroEventID
	withoutID, err := canonicalEncoding(&unattested)
	if err != nil {
		return err
	}
	if derived := identity.ReferenceHash(withoutID).EventID(); derived != pdu.EventID {
		return fmt.Errorf("roomgraph: event ID %s does not match reference hash %s", pdu.EventID, derived)
	}
	return nil
}
