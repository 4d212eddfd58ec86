// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

const (
	privateKeyFile = "event-signing-key"
	publicKeyFile  = "event-signing-key.pub"
)

// GenerateKeypair creates a new Ed25519 keypair for event signing.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: generating Ed25519 keypair: %w", err)
	}
	return public, private, nil
}

// SaveKeypair writes an Ed25519 keypair to the data directory. The
// private key file has 0600 permissions; the public key file has 0644.
func SaveKeypair(dataDir string, public ed25519.PublicKey, private ed25519.PrivateKey) error {
	privatePath := filepath.Join(dataDir, privateKeyFile)
	if err := os.WriteFile(privatePath, private, 0600); err != nil {
		return fmt.Errorf("identity: writing private key: %w", err)
	}

	publicPath := filepath.Join(dataDir, publicKeyFile)
	if err := os.WriteFile(publicPath, public, 0644); err != nil {
		return fmt.Errorf("identity: writing public key: %w", err)
	}

	return nil
}

// LoadKeypair loads an Ed25519 keypair from the data directory.
// Returns an error if either file is missing or has an unexpected
// size.
func LoadKeypair(dataDir string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	privatePath := filepath.Join(dataDir, privateKeyFile)
	privateBytes, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: reading private key: %w", err)
	}
	if len(privateBytes) != ed25519.PrivateKeySize {
		return nil, nil, fmt.Errorf("identity: private key has %d bytes, want %d",
			len(privateBytes), ed25519.PrivateKeySize)
	}

	publicPath := filepath.Join(dataDir, publicKeyFile)
	publicBytes, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: reading public key: %w", err)
	}
	if len(publicBytes) != ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("identity: public key has %d bytes, want %d",
			len(publicBytes), ed25519.PublicKeySize)
	}

	return ed25519.PublicKey(publicBytes), ed25519.PrivateKey(privateBytes), nil
}

// LoadOrGenerateKeypair loads an existing keypair from dataDir, or
// generates and saves a new one if the files don't exist. Returns the
// keypair and whether it was newly generated. A signing key that
// exists but cannot be loaded is an error, never silently replaced —
// replacing it would orphan every event the server has ever signed.
func LoadOrGenerateKeypair(dataDir string) (ed25519.PublicKey, ed25519.PrivateKey, bool, error) {
	public, private, err := LoadKeypair(dataDir)
	if err == nil {
		return public, private, false, nil
	}

	privatePath := filepath.Join(dataDir, privateKeyFile)
	if _, statErr := os.Stat(privatePath); statErr == nil {
		// File exists but couldn't be loaded — corruption or bad size.
		return nil, nil, false, err
	}

	public, private, err = GenerateKeypair()
	if err != nil {
		return nil, nil, false, err
	}

	if err := SaveKeypair(dataDir, public, private); err != nil {
		return nil, nil, false, err
	}

	return public, private, true, nil
}
