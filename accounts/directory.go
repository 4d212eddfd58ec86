// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package accounts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/roomgraph"
	"github.com/bureau-foundation/hearth/storage"
)

var (
	namespacePassword    = []byte("password")
	namespaceToken       = []byte("token")
	namespaceDeviceToken = []byte("devicetoken")
	namespaceDevice      = []byte("device")
	namespaceDisplayName = []byte("displayname")
	namespaceAvatarURL   = []byte("avatarurl")
	namespaceJoined      = []byte("joined")
	namespaceJoinedBy    = []byte("joinedby")
	namespaceInvited     = []byte("invited")
	namespaceInvitedBy   = []byte("invitedby")
	namespaceLeft        = []byte("left")
)

// ErrUserExists is returned by Register for an already-taken user ID.
var ErrUserExists = errors.New("accounts: user already exists")

// ErrUnknownDevice is returned by ReplaceToken when the device has
// not been added for the user.
var ErrUnknownDevice = errors.New("accounts: unknown device")

// Directory is the account store. It shares the ordered store with
// the event graph and appends membership events through it.
type Directory struct {
	store  storage.Store
	graph  *roomgraph.Graph
	logger *slog.Logger
}

// NewDirectory returns a Directory over the given store and graph. A
// nil logger discards.
func NewDirectory(store storage.Store, graph *roomgraph.Graph, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Directory{store: store, graph: graph, logger: logger}
}

// Register creates the account with the given password hash (from
// HashPassword). Returns ErrUserExists if the user ID is taken.
func (d *Directory) Register(ctx context.Context, user ref.UserID, passwordHash string) error {
	key := storage.Key(namespacePassword, []byte(user.String()))
	if _, ok, err := d.store.Get(ctx, key); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrUserExists, user)
	}
	if err := d.store.Insert(ctx, key, []byte(passwordHash)); err != nil {
		return err
	}
	d.logger.Info("account registered", "user", user)
	return nil
}

// Exists reports whether the account is registered.
func (d *Directory) Exists(ctx context.Context, user ref.UserID) (bool, error) {
	_, ok, err := d.store.Get(ctx, storage.Key(namespacePassword, []byte(user.String())))
	return ok, err
}

// PasswordHash returns the account's stored password hash, or
// ok=false for an unknown user.
func (d *Directory) PasswordHash(ctx context.Context, user ref.UserID) (string, bool, error) {
	value, ok, err := d.store.Get(ctx, storage.Key(namespacePassword, []byte(user.String())))
	if err != nil || !ok {
		return "", false, err
	}
	return string(value), true, nil
}

// All returns every registered user ID, in key order.
func (d *Directory) All(ctx context.Context) ([]ref.UserID, error) {
	prefix := storage.Prefix(namespacePassword)
	entries, err := d.store.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	users := make([]ref.UserID, 0, len(entries))
	for _, entry := range entries {
		user, err := ref.ParseUserID(string(entry.Key[len(prefix):]))
		if err != nil {
			return nil, fmt.Errorf("accounts: password key: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

// AddDevice records a device for the user. Adding a device twice is a
// no-op.
func (d *Directory) AddDevice(ctx context.Context, user ref.UserID, deviceID string) error {
	key := storage.Key(namespaceDevice, []byte(user.String()), []byte(deviceID))
	return d.store.Insert(ctx, key, nil)
}

// Devices returns the user's device IDs, in key order.
func (d *Directory) Devices(ctx context.Context, user ref.UserID) ([]string, error) {
	prefix := storage.Prefix(namespaceDevice, []byte(user.String()))
	entries, err := d.store.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	devices := make([]string, 0, len(entries))
	for _, entry := range entries {
		devices = append(devices, string(entry.Key[len(prefix):]))
	}
	return devices, nil
}

// ReplaceToken assigns a fresh access token to the user's device,
// revoking the device's previous token. The device must have been
// added first.
func (d *Directory) ReplaceToken(ctx context.Context, user ref.UserID, deviceID, token string) error {
	deviceKey := storage.Key(namespaceDevice, []byte(user.String()), []byte(deviceID))
	if _, ok, err := d.store.Get(ctx, deviceKey); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s for %s", ErrUnknownDevice, deviceID, user)
	}

	tokenKey := storage.Key(namespaceDeviceToken, []byte(user.String()), []byte(deviceID))
	if old, ok, err := d.store.Get(ctx, tokenKey); err != nil {
		return err
	} else if ok {
		if err := d.store.Remove(ctx, storage.Key(namespaceToken, old)); err != nil {
			return err
		}
	}

	if err := d.store.Insert(ctx, tokenKey, []byte(token)); err != nil {
		return err
	}
	return d.store.Insert(ctx, storage.Key(namespaceToken, []byte(token)), []byte(user.String()))
}

// UserFromToken resolves an access token to its user, or ok=false for
// an unknown or revoked token.
func (d *Directory) UserFromToken(ctx context.Context, token string) (ref.UserID, bool, error) {
	value, ok, err := d.store.Get(ctx, storage.Key(namespaceToken, []byte(token)))
	if err != nil || !ok {
		return ref.UserID{}, false, err
	}
	user, err := ref.ParseUserID(string(value))
	if err != nil {
		return ref.UserID{}, false, fmt.Errorf("accounts: token entry: %w", err)
	}
	return user, true, nil
}

// flag helpers back the two-way membership lists: presence of the key
// is the fact, the value is empty.

func (d *Directory) setFlag(ctx context.Context, namespace []byte, first, second string) error {
	return d.store.Insert(ctx, storage.Key(namespace, []byte(first), []byte(second)), nil)
}

func (d *Directory) clearFlag(ctx context.Context, namespace []byte, first, second string) error {
	return d.store.Remove(ctx, storage.Key(namespace, []byte(first), []byte(second)))
}

func (d *Directory) hasFlag(ctx context.Context, namespace []byte, first, second string) (bool, error) {
	_, ok, err := d.store.Get(ctx, storage.Key(namespace, []byte(first), []byte(second)))
	return ok, err
}

// listFlags returns the suffixes under namespace 0xFF first 0xFF.
func (d *Directory) listFlags(ctx context.Context, namespace []byte, first string) ([]string, error) {
	prefix := storage.Prefix(namespace, []byte(first))
	entries, err := d.store.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !bytes.HasPrefix(entry.Key, prefix) {
			continue
		}
		values = append(values, string(entry.Key[len(prefix):]))
	}
	return values, nil
}
