// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ephemeral

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/storage"
	"github.com/bureau-foundation/hearth/storage/sequence"
)

var (
	testRoom  = ref.MustParseRoomID("!lounge:hearth.local")
	otherRoom = ref.MustParseRoomID("!kitchen:hearth.local")
	alice     = ref.MustParseUserID("@alice:hearth.local")
	bob       = ref.MustParseUserID("@bob:hearth.local")
)

func newTestStore(t *testing.T) (storage.Store, *sequence.Sequence) {
	t.Helper()
	store := storage.NewMemory()
	t.Cleanup(func() { store.Close() })
	return store, sequence.New(store)
}

func payload(t *testing.T, v any) codec.RawMessage {
	t.Helper()
	raw, err := codec.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return codec.RawMessage(raw)
}

func TestReceiptsOneSlotPerUser(t *testing.T) {
	store, seq := newTestStore(t)
	receipts := NewReceipts(store, seq)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := receipts.Update(ctx, testRoom, alice, payload(t, map[string]int{"n": i}))
		if err != nil {
			t.Fatalf("Update #%d: %v", i, err)
		}
	}
	if err := receipts.Update(ctx, testRoom, bob, payload(t, map[string]int{"n": 100})); err != nil {
		t.Fatalf("Update(bob): %v", err)
	}

	all, err := receipts.All(ctx, testRoom)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("All returned %d receipts, want 2 (one slot per user)", len(all))
	}

	// Alice's surviving slot must carry her final payload.
	var aliceReceipt *Receipt
	for i := range all {
		if all[i].User == alice {
			aliceReceipt = &all[i]
		}
	}
	if aliceReceipt == nil {
		t.Fatal("alice has no receipt")
	}
	var decoded map[string]int
	if err := codec.Unmarshal(aliceReceipt.Content, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["n"] != 4 {
		t.Errorf("alice's receipt payload = %d, want 4 (the last update)", decoded["n"])
	}
}

func TestReceiptsSinceIsStrict(t *testing.T) {
	store, seq := newTestStore(t)
	receipts := NewReceipts(store, seq)
	ctx := context.Background()

	if err := receipts.Update(ctx, testRoom, alice, payload(t, "a")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	first, err := receipts.All(ctx, testRoom)
	if err != nil || len(first) != 1 {
		t.Fatalf("All: %v (len %d)", err, len(first))
	}

	if err := receipts.Update(ctx, testRoom, bob, payload(t, "b")); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Strictly-after: alice's own ordinal is excluded.
	changed, err := receipts.Since(ctx, testRoom, first[0].Ordinal)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(changed) != 1 || changed[0].User != bob {
		t.Fatalf("Since(%d) = %v, want only bob's receipt", first[0].Ordinal, changed)
	}

	// Other rooms never leak into the scope.
	if err := receipts.Update(ctx, otherRoom, alice, payload(t, "elsewhere")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	all, err := receipts.All(ctx, testRoom)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("All(%s) returned %d receipts, want 2", testRoom, len(all))
	}
}

func TestReceiptsConcurrentUpdatesSameSubject(t *testing.T) {
	store, seq := newTestStore(t)
	receipts := NewReceipts(store, seq)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if err := receipts.Update(ctx, testRoom, alice, payload(t, fmt.Sprintf("%d/%d", n, i))); err != nil {
					t.Errorf("Update: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	all, err := receipts.All(ctx, testRoom)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("concurrent updates left %d live slots, want 1", len(all))
	}
}

func TestTypingLifecycle(t *testing.T) {
	store, seq := newTestStore(t)
	fake := clock.Fake(time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC))
	typing := NewTyping(store, seq, fake)
	ctx := context.Background()

	// Nobody typing: a well-formed empty state, not an error.
	state, err := typing.ActiveIn(ctx, testRoom)
	if err != nil {
		t.Fatalf("ActiveIn: %v", err)
	}
	if state.Users == nil || len(state.Users) != 0 {
		t.Fatalf("empty room state = %+v, want non-nil empty user list", state)
	}

	deadline := fake.Now().Add(30 * time.Second)
	if err := typing.Start(ctx, testRoom, alice, deadline); err != nil {
		t.Fatalf("Start(alice): %v", err)
	}
	if err := typing.Start(ctx, testRoom, bob, deadline.Add(time.Minute)); err != nil {
		t.Fatalf("Start(bob): %v", err)
	}
	// Restarting replaces, never duplicates.
	if err := typing.Start(ctx, testRoom, alice, deadline.Add(10*time.Second)); err != nil {
		t.Fatalf("Start(alice, again): %v", err)
	}

	state, err = typing.ActiveIn(ctx, testRoom)
	if err != nil {
		t.Fatalf("ActiveIn: %v", err)
	}
	if len(state.Users) != 2 {
		t.Fatalf("active users = %v, want alice and bob once each", state.Users)
	}
	if state.Ordinal == 0 {
		t.Error("active state has zero ordinal despite live markers")
	}

	// Stop removes exactly the named user's marker.
	if err := typing.Stop(ctx, testRoom, bob); err != nil {
		t.Fatalf("Stop(bob): %v", err)
	}
	state, err = typing.ActiveIn(ctx, testRoom)
	if err != nil {
		t.Fatalf("ActiveIn: %v", err)
	}
	if len(state.Users) != 1 || state.Users[0] != alice {
		t.Fatalf("after Stop(bob), active = %v, want [alice]", state.Users)
	}

	// Deadline passes: the marker is evicted, and the eviction is
	// durable — a second read on an un-advanced clock still sees none.
	fake.Advance(time.Hour)
	state, err = typing.ActiveIn(ctx, testRoom)
	if err != nil {
		t.Fatalf("ActiveIn: %v", err)
	}
	if len(state.Users) != 0 {
		t.Fatalf("after expiry, active = %v, want none", state.Users)
	}
	entries, err := store.ScanPrefix(ctx, storage.Prefix([]byte("typing"), []byte(testRoom.String())))
	if err != nil {
		t.Fatalf("ScanPrefix: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expired markers still stored: %d entries", len(entries))
	}
}

func TestAccountDataScopes(t *testing.T) {
	store, seq := newTestStore(t)
	data := NewAccountData(store, seq)
	ctx := context.Background()

	var global ref.RoomID

	if err := data.Update(ctx, global, alice, "m.push_rules", payload(t, "v1")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := data.Update(ctx, global, alice, "m.push_rules", payload(t, "v2")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := data.Update(ctx, global, alice, "m.direct", payload(t, "dms")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := data.Update(ctx, testRoom, alice, "m.tag", payload(t, "favourite")); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Global scope: one slot per kind, the room item invisible.
	items, err := data.All(ctx, global, alice)
	if err != nil {
		t.Fatalf("All(global): %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("global scope has %d items, want 2", len(items))
	}

	item, ok, err := data.Get(ctx, global, alice, "m.push_rules")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	var value string
	if err := codec.Unmarshal(item.Content, &value); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if value != "v2" {
		t.Errorf("m.push_rules = %q, want the later write", value)
	}

	// Room scope is independent of global.
	items, err = data.All(ctx, testRoom, alice)
	if err != nil {
		t.Fatalf("All(room): %v", err)
	}
	if len(items) != 1 || items[0].Kind != "m.tag" {
		t.Fatalf("room scope items = %v, want only m.tag", items)
	}

	// Unknown kind.
	if _, ok, err := data.Get(ctx, testRoom, alice, "m.unknown"); err != nil || ok {
		t.Fatalf("Get(unknown): ok=%v err=%v", ok, err)
	}

	// Since only reports kinds changed after the boundary.
	boundary := items[0].Ordinal
	if err := data.Update(ctx, testRoom, alice, "m.tag", payload(t, "archived")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	changed, err := data.Since(ctx, testRoom, alice, boundary)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(changed) != 1 || changed[0].Kind != "m.tag" || changed[0].Ordinal <= boundary {
		t.Fatalf("Since(%d) = %v, want the replacement m.tag item", boundary, changed)
	}
}
