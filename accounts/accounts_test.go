// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/bureau-foundation/hearth/identity"
	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/roomgraph"
	"github.com/bureau-foundation/hearth/storage"
	"github.com/bureau-foundation/hearth/storage/sequence"
)

var (
	testRoom  = ref.MustParseRoomID("!lounge:hearth.local")
	otherRoom = ref.MustParseRoomID("!kitchen:hearth.local")
	alice     = ref.MustParseUserID("@alice:hearth.local")
	bob       = ref.MustParseUserID("@bob:hearth.local")
)

func newTestDirectory(t *testing.T) (*Directory, *roomgraph.Graph) {
	t.Helper()

	store := storage.NewMemory()
	t.Cleanup(func() { store.Close() })

	_, private, err := identity.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	signer, err := identity.NewSigner(ref.MustParseServerName("hearth.local"), private)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	graph, err := roomgraph.New(roomgraph.Config{
		Store:    store,
		Sequence: sequence.New(store),
		Signer:   signer,
	})
	if err != nil {
		t.Fatalf("roomgraph.New: %v", err)
	}
	return NewDirectory(store, graph, nil), graph
}

// createRoom seeds a room with its creation event so RoomExists holds.
func createRoom(t *testing.T, graph *roomgraph.Graph, roomID ref.RoomID, creator ref.UserID) {
	t.Helper()
	stateKey := ""
	_, accepted, err := graph.Append(context.Background(), roomgraph.AppendRequest{
		RoomID:   roomID,
		Sender:   creator,
		Kind:     "m.room.create",
		Content:  map[string]string{"creator": creator.String()},
		StateKey: &stateKey,
	})
	if err != nil || !accepted {
		t.Fatalf("creating room %s: accepted=%v err=%v", roomID, accepted, err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("VerifyPassword(wrong) = %v, want ErrWrongPassword", err)
	}
	if err := VerifyPassword("$md5$nope", "anything"); errors.Is(err, ErrWrongPassword) || err == nil {
		t.Fatalf("VerifyPassword(malformed) = %v, want a parse error", err)
	}

	// Fresh salt per call: same password, different encodings.
	again, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == again {
		t.Error("two hashes of the same password are identical (salt reuse)")
	}
}

func TestRegisterAndLookup(t *testing.T) {
	directory, _ := newTestDirectory(t)
	ctx := context.Background()

	exists, err := directory.Exists(ctx, alice)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("unregistered user exists")
	}

	if err := directory.Register(ctx, alice, "hash-a"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := directory.Register(ctx, alice, "hash-b"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate Register = %v, want ErrUserExists", err)
	}
	if err := directory.Register(ctx, bob, "hash-c"); err != nil {
		t.Fatalf("Register(bob): %v", err)
	}

	hash, ok, err := directory.PasswordHash(ctx, alice)
	if err != nil || !ok {
		t.Fatalf("PasswordHash: ok=%v err=%v", ok, err)
	}
	if hash != "hash-a" {
		t.Errorf("hash = %q, want the original registration's", hash)
	}

	users, err := directory.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("All = %v, want alice and bob", users)
	}
}

func TestDeviceTokens(t *testing.T) {
	directory, _ := newTestDirectory(t)
	ctx := context.Background()

	if err := directory.Register(ctx, alice, "hash"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Tokens require a known device.
	if err := directory.ReplaceToken(ctx, alice, "PHONE", "tok-1"); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("ReplaceToken(unknown device) = %v, want ErrUnknownDevice", err)
	}

	if err := directory.AddDevice(ctx, alice, "PHONE"); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if err := directory.AddDevice(ctx, alice, "PHONE"); err != nil {
		t.Fatalf("AddDevice (repeat): %v", err)
	}
	if err := directory.AddDevice(ctx, alice, "LAPTOP"); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	devices, err := directory.Devices(ctx, alice)
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("devices = %v, want exactly LAPTOP and PHONE", devices)
	}

	if err := directory.ReplaceToken(ctx, alice, "PHONE", "tok-1"); err != nil {
		t.Fatalf("ReplaceToken: %v", err)
	}
	user, ok, err := directory.UserFromToken(ctx, "tok-1")
	if err != nil || !ok {
		t.Fatalf("UserFromToken: ok=%v err=%v", ok, err)
	}
	if user != alice {
		t.Errorf("token resolves to %s, want alice", user)
	}

	// Replacing revokes the old token.
	if err := directory.ReplaceToken(ctx, alice, "PHONE", "tok-2"); err != nil {
		t.Fatalf("ReplaceToken: %v", err)
	}
	if _, ok, err := directory.UserFromToken(ctx, "tok-1"); err != nil || ok {
		t.Fatalf("revoked token still resolves: ok=%v err=%v", ok, err)
	}
	if _, ok, err := directory.UserFromToken(ctx, "tok-2"); err != nil || !ok {
		t.Fatalf("fresh token does not resolve: ok=%v err=%v", ok, err)
	}
}

func TestMembershipLifecycle(t *testing.T) {
	directory, graph := newTestDirectory(t)
	ctx := context.Background()

	// Joining a room that does not exist fails softly.
	joined, err := directory.Join(ctx, testRoom, alice)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if joined {
		t.Fatal("joined a nonexistent room")
	}

	createRoom(t, graph, testRoom, alice)

	if err := directory.Invite(ctx, alice, testRoom, bob); err != nil {
		t.Fatalf("Invite: %v", err)
	}
	invited, err := directory.InvitedRooms(ctx, bob)
	if err != nil {
		t.Fatalf("InvitedRooms: %v", err)
	}
	if len(invited) != 1 || invited[0] != testRoom {
		t.Fatalf("bob's invites = %v, want [%s]", invited, testRoom)
	}

	// Joining consumes the invite.
	joined, err = directory.Join(ctx, testRoom, bob)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !joined {
		t.Fatal("join of existing room refused")
	}
	invited, err = directory.InvitedRooms(ctx, bob)
	if err != nil {
		t.Fatalf("InvitedRooms: %v", err)
	}
	if len(invited) != 0 {
		t.Errorf("invite not consumed by join: %v", invited)
	}
	rooms, err := directory.JoinedRooms(ctx, bob)
	if err != nil {
		t.Fatalf("JoinedRooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0] != testRoom {
		t.Fatalf("bob's rooms = %v, want [%s]", rooms, testRoom)
	}
	users, err := directory.JoinedUsers(ctx, testRoom)
	if err != nil {
		t.Fatalf("JoinedUsers: %v", err)
	}
	if len(users) != 1 || users[0] != bob {
		t.Fatalf("room's users = %v, want [bob]", users)
	}

	// The join reached the room's state too.
	membership, ok, err := graph.Membership(ctx, testRoom, bob)
	if err != nil || !ok {
		t.Fatalf("Membership: ok=%v err=%v", ok, err)
	}
	if membership != roomgraph.MembershipJoin {
		t.Errorf("graph membership = %q, want join", membership)
	}

	// Leave, then forget.
	if err := directory.Leave(ctx, bob, testRoom, bob); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	rooms, err = directory.JoinedRooms(ctx, bob)
	if err != nil {
		t.Fatalf("JoinedRooms: %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("joined list not cleared by leave: %v", rooms)
	}
	left, err := directory.LeftRooms(ctx, bob)
	if err != nil {
		t.Fatalf("LeftRooms: %v", err)
	}
	if len(left) != 1 || left[0] != testRoom {
		t.Fatalf("left list = %v, want [%s]", left, testRoom)
	}
	membership, ok, err = graph.Membership(ctx, testRoom, bob)
	if err != nil || !ok {
		t.Fatalf("Membership: ok=%v err=%v", ok, err)
	}
	if membership != roomgraph.MembershipLeave {
		t.Errorf("graph membership = %q, want leave", membership)
	}

	if err := directory.Forget(ctx, testRoom, bob); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	left, err = directory.LeftRooms(ctx, bob)
	if err != nil {
		t.Fatalf("LeftRooms: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("left list not cleared by forget: %v", left)
	}
}

func TestDisplayNameFanOut(t *testing.T) {
	directory, graph := newTestDirectory(t)
	ctx := context.Background()

	createRoom(t, graph, testRoom, alice)
	createRoom(t, graph, otherRoom, alice)
	if joined, err := directory.Join(ctx, testRoom, alice); err != nil || !joined {
		t.Fatalf("Join: joined=%v err=%v", joined, err)
	}
	if joined, err := directory.Join(ctx, otherRoom, alice); err != nil || !joined {
		t.Fatalf("Join: joined=%v err=%v", joined, err)
	}

	if err := directory.SetDisplayName(ctx, alice, "Alice A."); err != nil {
		t.Fatalf("SetDisplayName: %v", err)
	}
	name, ok, err := directory.DisplayName(ctx, alice)
	if err != nil || !ok {
		t.Fatalf("DisplayName: ok=%v err=%v", ok, err)
	}
	if name != "Alice A." {
		t.Errorf("display name = %q", name)
	}

	// Every joined room received a member event carrying the name.
	for _, roomID := range []ref.RoomID{testRoom, otherRoom} {
		pdu, ok, err := graph.StateEvent(ctx, roomID, roomgraph.EventTypeMember, alice.String())
		if err != nil || !ok {
			t.Fatalf("StateEvent(%s): ok=%v err=%v", roomID, ok, err)
		}
		var content roomgraph.MemberContent
		if err := codec.Unmarshal(pdu.Content, &content); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if content.DisplayName != "Alice A." {
			t.Errorf("member event in %s carries name %q", roomID, content.DisplayName)
		}
	}

	if err := directory.RemoveDisplayName(ctx, alice); err != nil {
		t.Fatalf("RemoveDisplayName: %v", err)
	}
	if _, ok, err := directory.DisplayName(ctx, alice); err != nil || ok {
		t.Fatalf("display name survives removal: ok=%v err=%v", ok, err)
	}

	// Avatar URLs are plain profile fields, no fan-out.
	if err := directory.SetAvatarURL(ctx, alice, "mxc://hearth.local/abc"); err != nil {
		t.Fatalf("SetAvatarURL: %v", err)
	}
	url, ok, err := directory.AvatarURL(ctx, alice)
	if err != nil || !ok {
		t.Fatalf("AvatarURL: ok=%v err=%v", ok, err)
	}
	if url != "mxc://hearth.local/abc" {
		t.Errorf("avatar URL = %q", url)
	}
}
