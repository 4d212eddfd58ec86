// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/hearth/lib/ref"
)

func TestHashDomainsAreSeparated(t *testing.T) {
	data := []byte("the same canonical bytes")
	if ReferenceHash(data) == ContentHash(data) {
		t.Fatal("reference and content domains produced the same digest")
	}
}

func TestHashIsDeterministic(t *testing.T) {
	data := []byte("canonical event encoding")
	if ReferenceHash(data) != ReferenceHash(data) {
		t.Fatal("reference hash is not deterministic")
	}
	if ReferenceHash(data) == ReferenceHash([]byte("different bytes")) {
		t.Fatal("distinct inputs collided")
	}
}

func TestHashEventID(t *testing.T) {
	eventID := ReferenceHash([]byte("payload")).EventID()
	raw := eventID.String()
	if !strings.HasPrefix(raw, "$") {
		t.Fatalf("event ID %q missing '$' sigil", raw)
	}
	// 32 bytes → 43 base64url characters, no padding.
	if len(raw) != 1+43 {
		t.Errorf("event ID length %d, want 44", len(raw))
	}
	if strings.ContainsAny(raw, "+/=") {
		t.Errorf("event ID %q contains non-URL-safe characters", raw)
	}
}

func TestSignAndVerify(t *testing.T) {
	public, private, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	signer, err := NewSigner(ref.MustParseServerName("hearth.local"), private)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	canonical := []byte("canonical event bytes")
	signature := signer.Sign(canonical)

	if err := Verify(public, canonical, signature); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if err := Verify(public, []byte("tampered bytes"), signature); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("Verify of tampered bytes: got %v, want ErrInvalidSignature", err)
	}

	if err := Verify(public, canonical, "!!not base64!!"); err == nil {
		t.Fatal("Verify accepted malformed signature encoding")
	}
}

func TestSignerKeyIDIsStable(t *testing.T) {
	_, private, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	origin := ref.MustParseServerName("hearth.local")

	first, err := NewSigner(origin, private)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	second, err := NewSigner(origin, private)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	if first.KeyID() != second.KeyID() {
		t.Errorf("key ID not stable: %q vs %q", first.KeyID(), second.KeyID())
	}
	if !strings.HasPrefix(first.KeyID(), "ed25519:") {
		t.Errorf("key ID %q missing algorithm prefix", first.KeyID())
	}
}

func TestLoadOrGenerateKeypair(t *testing.T) {
	dataDir := t.TempDir()

	public, private, generated, err := LoadOrGenerateKeypair(dataDir)
	if err != nil {
		t.Fatalf("LoadOrGenerateKeypair (first): %v", err)
	}
	if !generated {
		t.Fatal("first call should generate")
	}

	reloadedPublic, reloadedPrivate, generated, err := LoadOrGenerateKeypair(dataDir)
	if err != nil {
		t.Fatalf("LoadOrGenerateKeypair (second): %v", err)
	}
	if generated {
		t.Fatal("second call should load, not generate")
	}
	if !public.Equal(reloadedPublic) || !private.Equal(reloadedPrivate) {
		t.Fatal("reloaded keypair differs from generated one")
	}
}
