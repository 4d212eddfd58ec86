// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/bureau-foundation/hearth/lib/ref"
)

// HashAlgorithm is the key under which content hashes are recorded in
// an event's hashes map.
const HashAlgorithm = "blake3"

// ErrInvalidSignature is returned by Verify when the signature does
// not match the canonical bytes under the given public key.
var ErrInvalidSignature = errors.New("identity: invalid Ed25519 signature")

// Signer holds the homeserver's origin identity: its server name, its
// Ed25519 keypair, and the derived key identifier. One Signer is
// created at startup and shared by every append.
type Signer struct {
	origin     ref.ServerName
	keyID      string
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// NewSigner wraps an origin server name and private key. The key
// identifier is derived from the public key ("ed25519:" plus the
// first eight characters of its base64url form), so the same keypair
// always produces the same identifier.
func NewSigner(origin ref.ServerName, privateKey ed25519.PrivateKey) (*Signer, error) {
	if origin.IsZero() {
		return nil, fmt.Errorf("identity: origin server name is zero")
	}
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("identity: private key has %d bytes, want %d",
			len(privateKey), ed25519.PrivateKeySize)
	}

	publicKey := privateKey.Public().(ed25519.PublicKey)
	encoded := base64.RawURLEncoding.EncodeToString(publicKey)
	return &Signer{
		origin:     origin,
		keyID:      "ed25519:" + encoded[:8],
		privateKey: privateKey,
		publicKey:  publicKey,
	}, nil
}

// Origin returns the server name this Signer attests for.
func (s *Signer) Origin() ref.ServerName { return s.origin }

// KeyID returns the signing key identifier (e.g., "ed25519:dGhpc2lz").
func (s *Signer) KeyID() string { return s.keyID }

// PublicKey returns the verification key for this Signer.
func (s *Signer) PublicKey() ed25519.PublicKey { return s.publicKey }

// Sign produces the unpadded base64url Ed25519 signature of the
// canonical bytes, as recorded in an event's signatures map under
// [Signer.Origin] and [Signer.KeyID].
func (s *Signer) Sign(canonical []byte) string {
	signature := ed25519.Sign(s.privateKey, canonical)
	return base64.RawURLEncoding.EncodeToString(signature)
}

// Verify checks an encoded signature against canonical bytes under
// the given public key. Returns ErrInvalidSignature on mismatch.
func Verify(publicKey ed25519.PublicKey, canonical []byte, encodedSignature string) error {
	signature, err := base64.RawURLEncoding.DecodeString(encodedSignature)
	if err != nil {
		return fmt.Errorf("identity: decoding signature: %w", err)
	}
	if !ed25519.Verify(publicKey, canonical, signature) {
		return ErrInvalidSignature
	}
	return nil
}
