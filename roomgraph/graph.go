// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomgraph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bureau-foundation/hearth/identity"
	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/keyedmutex"
	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/storage"
	"github.com/bureau-foundation/hearth/storage/sequence"
)

// Key namespaces. See the package comment for the full layout.
var (
	namespaceEvent      = []byte("event")
	namespaceEventID    = []byte("eventid")
	namespaceState      = []byte("state")
	namespaceFrontier   = []byte("frontier")
	namespaceReadMarker = []byte("readmarker")
)

// Graph is the event graph store for all rooms on this homeserver.
type Graph struct {
	store    storage.Store
	sequence *sequence.Sequence
	signer   *identity.Signer
	clock    clock.Clock
	logger   *slog.Logger

	// appendLocks serializes appends per room: the frontier update and
	// depth computation are a read-modify-write over multiple keys.
	appendLocks *keyedmutex.KeyedMutex
}

// Config assembles a Graph. Store, Sequence, and Signer are required;
// Clock defaults to the wall clock and Logger to discard.
type Config struct {
	Store    storage.Store
	Sequence *sequence.Sequence
	Signer   *identity.Signer
	Clock    clock.Clock
	Logger   *slog.Logger
}

// New returns a Graph over the given store.
func New(cfg Config) (*Graph, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("roomgraph: config has no store")
	}
	if cfg.Sequence == nil {
		return nil, fmt.Errorf("roomgraph: config has no sequence")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("roomgraph: config has no signer")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Graph{
		store:       cfg.Store,
		sequence:    cfg.Sequence,
		signer:      cfg.Signer,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		appendLocks: keyedmutex.New(),
	}, nil
}

// AppendRequest describes the event to append. Content may be any
// CBOR-encodable value or a pre-encoded codec.RawMessage. StateKey nil
// means a message event; a non-nil pointer (even to "") makes it a
// state event. Unsigned entries are carried into the event verbatim.
type AppendRequest struct {
	RoomID   ref.RoomID
	Sender   ref.UserID
	Kind     ref.EventType
	Content  any
	StateKey *string
	Redacts  *ref.EventID
	Unsigned map[string]any
}

// Append builds, authorizes, attests, and persists a new event at the
// room's frontier. It returns the derived event ID and accepted=true
// on success. An event rejected by the authorization gate returns
// accepted=false with a zero ID and no error; errors are reserved for
// storage and encoding failures.
func (g *Graph) Append(ctx context.Context, req AppendRequest) (eventID ref.EventID, accepted bool, err error) {
	if req.RoomID.IsZero() {
		return ref.EventID{}, false, fmt.Errorf("roomgraph: append with zero room ID")
	}
	if req.Sender.IsZero() {
		return ref.EventID{}, false, fmt.Errorf("roomgraph: append with zero sender")
	}
	if req.Kind == "" {
		return ref.EventID{}, false, fmt.Errorf("roomgraph: append with empty event type")
	}

	unlock := g.appendLocks.Lock(req.RoomID.String())
	defer unlock()

	// Only state events pass through the gate; message events are
	// admitted for any sender.
	if req.StateKey != nil {
		admitted, err := g.authorize(ctx, req.RoomID, req.Sender, req.Kind)
		if err != nil {
			return ref.EventID{}, false, err
		}
		if !admitted {
			g.logger.Debug("append rejected by authorization gate",
				"room", req.RoomID, "sender", req.Sender, "type", req.Kind)
			return ref.EventID{}, false, nil
		}
	}

	content, err := encodeContent(req.Content)
	if err != nil {
		return ref.EventID{}, false, err
	}
	unsigned, err := encodeUnsigned(req.Unsigned)
	if err != nil {
		return ref.EventID{}, false, err
	}

	frontier, err := g.Frontier(ctx, req.RoomID)
	if err != nil {
		return ref.EventID{}, false, err
	}
	depth, err := g.nextDepth(ctx, frontier)
	if err != nil {
		return ref.EventID{}, false, err
	}

	// A superseded state entry is preserved in unsigned.prev_content
	// before the index overwrites it.
	if req.StateKey != nil {
		previous, ok, err := g.stateEntry(ctx, req.RoomID, req.Kind, *req.StateKey)
		if err != nil {
			return ref.EventID{}, false, err
		}
		if ok {
			if unsigned == nil {
				unsigned = make(map[string]codec.RawMessage, 1)
			}
			unsigned["prev_content"] = previous.Content
		}
	}

	pdu := &PDU{
		RoomID:         req.RoomID,
		Sender:         req.Sender,
		Origin:         g.signer.Origin(),
		OriginServerTS: g.clock.Now().UnixMilli(),
		Kind:           req.Kind,
		Content:        content,
		StateKey:       req.StateKey,
		PrevEvents:     frontier,
		Depth:          depth,
		AuthEvents:     []ref.EventID{},
		Redacts:        req.Redacts,
		Unsigned:       unsigned,
	}
	if err := attest(pdu, g.signer); err != nil {
		return ref.EventID{}, false, err
	}

	if err := g.replaceFrontier(ctx, req.RoomID, pdu.EventID); err != nil {
		return ref.EventID{}, false, err
	}

	ordinal, err := g.sequence.Next(ctx)
	if err != nil {
		return ref.EventID{}, false, err
	}
	primaryKey := storage.Key(namespaceEvent, []byte(req.RoomID.String()), storage.Uint64(ordinal))

	encoded, err := codec.Marshal(pdu)
	if err != nil {
		return ref.EventID{}, false, fmt.Errorf("roomgraph: encoding event %s: %w", pdu.EventID, err)
	}
	if err := g.store.Insert(ctx, primaryKey, encoded); err != nil {
		return ref.EventID{}, false, fmt.Errorf("roomgraph: persisting event %s: %w", pdu.EventID, err)
	}
	idKey := storage.Key(namespaceEventID, []byte(pdu.EventID.String()))
	if err := g.store.Insert(ctx, idKey, primaryKey); err != nil {
		return ref.EventID{}, false, fmt.Errorf("roomgraph: indexing event %s: %w", pdu.EventID, err)
	}

	if pdu.IsState() {
		stateKey := storage.Key(namespaceState,
			[]byte(req.RoomID.String()), []byte(req.Kind), []byte(*req.StateKey))
		if err := g.store.Insert(ctx, stateKey, encoded); err != nil {
			return ref.EventID{}, false, fmt.Errorf("roomgraph: updating state index for %s: %w", pdu.EventID, err)
		}
	}

	// The sender has trivially seen their own event.
	if err := g.writeReadMarker(ctx, req.RoomID, req.Sender, ordinal); err != nil {
		return ref.EventID{}, false, err
	}

	g.logger.Debug("event appended",
		"room", req.RoomID, "event", pdu.EventID, "type", req.Kind, "ordinal", ordinal)
	return pdu.EventID, true, nil
}

// RoomExists reports whether the room has at least one event. A single
// greater-than probe against the room's log prefix answers it.
func (g *Graph) RoomExists(ctx context.Context, roomID ref.RoomID) (bool, error) {
	prefix := storage.Prefix(namespaceEvent, []byte(roomID.String()))
	entry, ok, err := g.store.NextGreater(ctx, prefix)
	if err != nil {
		return false, err
	}
	return ok && bytes.HasPrefix(entry.Key, prefix), nil
}

// Rooms returns every room ID that currently has a frontier, in
// lexicographic order.
func (g *Graph) Rooms(ctx context.Context) ([]ref.RoomID, error) {
	entries, err := g.store.ScanPrefix(ctx, storage.Prefix(namespaceFrontier))
	if err != nil {
		return nil, err
	}
	var rooms []ref.RoomID
	for _, entry := range entries {
		rest := entry.Key[len(namespaceFrontier)+1:]
		end := bytes.IndexByte(rest, storage.Delimiter)
		if end < 0 {
			return nil, fmt.Errorf("roomgraph: malformed frontier key %q", entry.Key)
		}
		roomID, err := ref.ParseRoomID(string(rest[:end]))
		if err != nil {
			return nil, fmt.Errorf("roomgraph: frontier key: %w", err)
		}
		if len(rooms) > 0 && rooms[len(rooms)-1] == roomID {
			continue
		}
		rooms = append(rooms, roomID)
	}
	return rooms, nil
}

// Frontier returns the room's current leaf event IDs. Empty for a
// room with no events.
func (g *Graph) Frontier(ctx context.Context, roomID ref.RoomID) ([]ref.EventID, error) {
	prefix := storage.Prefix(namespaceFrontier, []byte(roomID.String()))
	entries, err := g.store.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	leaves := make([]ref.EventID, 0, len(entries))
	for _, entry := range entries {
		leaf, err := ref.ParseEventID(string(entry.Key[len(prefix):]))
		if err != nil {
			return nil, fmt.Errorf("roomgraph: frontier key: %w", err)
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

// replaceFrontier removes every current leaf and installs eventID as
// the sole leaf. Callers hold the room's append lock.
func (g *Graph) replaceFrontier(ctx context.Context, roomID ref.RoomID, eventID ref.EventID) error {
	prefix := storage.Prefix(namespaceFrontier, []byte(roomID.String()))
	entries, err := g.store.ScanPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := g.store.Remove(ctx, entry.Key); err != nil {
			return err
		}
	}
	leafKey := storage.Key(namespaceFrontier, []byte(roomID.String()), []byte(eventID.String()))
	return g.store.Insert(ctx, leafKey, nil)
}

// nextDepth returns one past the maximum depth among the frontier
// events, or 1 for a room with no events.
func (g *Graph) nextDepth(ctx context.Context, frontier []ref.EventID) (uint64, error) {
	var deepest uint64
	for _, leaf := range frontier {
		pdu, ok, err := g.Event(ctx, leaf)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("roomgraph: frontier event %s not in log", leaf)
		}
		if pdu.Depth > deepest {
			deepest = pdu.Depth
		}
	}
	return deepest + 1, nil
}

// Event returns the stored event with the given ID, or ok=false if
// the ID is unknown.
func (g *Graph) Event(ctx context.Context, eventID ref.EventID) (*PDU, bool, error) {
	primaryKey, ok, err := g.eventPrimaryKey(ctx, eventID)
	if err != nil || !ok {
		return nil, false, err
	}
	encoded, ok, err := g.store.Get(ctx, primaryKey)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, fmt.Errorf("roomgraph: event %s indexed but missing from log", eventID)
	}
	return decodePDU(encoded)
}

// EventOrdinal returns the global stream ordinal assigned to the
// event, or ok=false if the ID is unknown.
func (g *Graph) EventOrdinal(ctx context.Context, eventID ref.EventID) (uint64, bool, error) {
	primaryKey, ok, err := g.eventPrimaryKey(ctx, eventID)
	if err != nil || !ok {
		return 0, false, err
	}
	return storage.ParseUint64(primaryKey), true, nil
}

func (g *Graph) eventPrimaryKey(ctx context.Context, eventID ref.EventID) ([]byte, bool, error) {
	idKey := storage.Key(namespaceEventID, []byte(eventID.String()))
	return g.store.Get(ctx, idKey)
}

// Since returns the room's events with ordinals strictly greater than
// since, in ascending stream order. since=0 returns the whole log.
func (g *Graph) Since(ctx context.Context, roomID ref.RoomID, since uint64) ([]*PDU, error) {
	prefix := storage.Prefix(namespaceEvent, []byte(roomID.String()))
	cursor := append(append([]byte(nil), prefix...), storage.Uint64(since)...)

	var events []*PDU
	for {
		entry, ok, err := g.store.NextGreater(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if !ok || !bytes.HasPrefix(entry.Key, prefix) {
			return events, nil
		}
		pdu, _, err := decodePDU(entry.Value)
		if err != nil {
			return nil, err
		}
		events = append(events, pdu)
		cursor = entry.Key
	}
}

// Until returns up to limit of the room's events with ordinals
// strictly less than until, newest first. It backs a client's
// backward pagination from a known position.
func (g *Graph) Until(ctx context.Context, roomID ref.RoomID, until uint64, limit int) ([]*PDU, error) {
	prefix := storage.Prefix(namespaceEvent, []byte(roomID.String()))
	cursor := append(append([]byte(nil), prefix...), storage.Uint64(until)...)

	var events []*PDU
	for limit <= 0 || len(events) < limit {
		entry, ok, err := g.store.NextLess(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if !ok || !bytes.HasPrefix(entry.Key, prefix) {
			break
		}
		pdu, _, err := decodePDU(entry.Value)
		if err != nil {
			return nil, err
		}
		events = append(events, pdu)
		cursor = entry.Key
	}
	return events, nil
}

func decodePDU(encoded []byte) (*PDU, bool, error) {
	var pdu PDU
	if err := codec.Unmarshal(encoded, &pdu); err != nil {
		return nil, false, fmt.Errorf("roomgraph: decoding stored event: %w", err)
	}
	return &pdu, true, nil
}

func encodeContent(content any) (codec.RawMessage, error) {
	if raw, ok := content.(codec.RawMessage); ok {
		return raw, nil
	}
	encoded, err := codec.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("roomgraph: encoding event content: %w", err)
	}
	return codec.RawMessage(encoded), nil
}

func encodeUnsigned(unsigned map[string]any) (map[string]codec.RawMessage, error) {
	if len(unsigned) == 0 {
		return nil, nil
	}
	encoded := make(map[string]codec.RawMessage, len(unsigned))
	for field, value := range unsigned {
		raw, err := codec.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("roomgraph: encoding unsigned field %q: %w", field, err)
		}
		encoded[field] = raw
	}
	return encoded, nil
}
