// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"context"
	"io"
	"log/slog"
	"path"
	"sync"

	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/roomgraph"
)

// Rejection reasons, fixed strings suitable for protocol error
// bodies.
const (
	ReasonACLDenied       = "server access denied"
	ReasonNotInRoom       = "server not in room"
	ReasonEventNotVisible = "server not allowed to see event"
)

// Decision is the gate's verdict. Reason is empty when Admitted.
type Decision struct {
	Admitted bool
	Reason   string
}

func admit() Decision { return Decision{Admitted: true} }

func reject(reason string) Decision { return Decision{Reason: reason} }

// Gate evaluates federation access against room state held in the
// event graph.
type Gate struct {
	graph  *roomgraph.Graph
	logger *slog.Logger
}

// NewGate returns a Gate over the given graph. A nil logger
// discards.
func NewGate(graph *roomgraph.Graph, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gate{graph: graph, logger: logger}
}

// CheckAccess decides whether origin may read the room. A non-zero
// eventID additionally requires that specific event to be visible to
// the origin. The four underlying reads run concurrently; the
// decision applies them in strict order:
//
//  1. ACL denial rejects, regardless of everything else.
//  2. A room that is neither world-readable nor joined by any of the
//     origin's users rejects.
//  3. A supplied event the origin cannot see rejects.
//
// A rejection is a well-formed Decision, not an error; errors are
// storage faults only.
func (g *Gate) CheckAccess(ctx context.Context, origin ref.ServerName, roomID ref.RoomID, eventID ref.EventID) (Decision, error) {
	var (
		wg sync.WaitGroup

		aclAllowed    bool
		aclErr        error
		worldReadable bool
		worldErr      error
		inRoom        bool
		inRoomErr     error
		eventVisible  bool
		eventErr      error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		aclAllowed, aclErr = g.aclAllows(ctx, roomID, origin)
	}()
	go func() {
		defer wg.Done()
		worldReadable, worldErr = g.graph.WorldReadable(ctx, roomID)
	}()
	go func() {
		defer wg.Done()
		inRoom, inRoomErr = g.graph.ServerInRoom(ctx, roomID, origin)
	}()
	if !eventID.IsZero() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eventVisible, eventErr = g.eventVisibleTo(ctx, roomID, eventID, origin)
		}()
	}
	wg.Wait()

	for _, err := range []error{aclErr, worldErr, inRoomErr, eventErr} {
		if err != nil {
			return Decision{}, err
		}
	}

	decision := admit()
	switch {
	case !aclAllowed:
		decision = reject(ReasonACLDenied)
	case !worldReadable && !inRoom:
		decision = reject(ReasonNotInRoom)
	case !eventID.IsZero() && !eventVisible:
		decision = reject(ReasonEventNotVisible)
	}
	if !decision.Admitted {
		g.logger.Debug("federation access rejected",
			"origin", origin, "room", roomID, "reason", decision.Reason)
	}
	return decision, nil
}

// aclAllows applies the room's m.room.server_acl event to origin.
// Rooms without an ACL event allow every origin. Deny patterns win
// over allow patterns; an ACL with an allow list admits only servers
// matching it.
func (g *Gate) aclAllows(ctx context.Context, roomID ref.RoomID, origin ref.ServerName) (bool, error) {
	acl, ok, err := g.graph.ServerACL(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	name := origin.String()
	if matchAny(acl.Deny, name) {
		return false, nil
	}
	if len(acl.Allow) > 0 {
		return matchAny(acl.Allow, name), nil
	}
	// An ACL event with no allow list admits nothing: publishing an
	// ACL is an opt-in to the allow-list model.
	return false, nil
}

// matchAny reports whether name matches any glob pattern. Malformed
// patterns match nothing.
func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if matched, err := path.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

// eventVisibleTo reports whether origin may see the given event: it
// must exist in this room, and the room's history must be open to the
// origin (world-readable, or the origin has a joined member).
func (g *Gate) eventVisibleTo(ctx context.Context, roomID ref.RoomID, eventID ref.EventID, origin ref.ServerName) (bool, error) {
	pdu, ok, err := g.graph.Event(ctx, eventID)
	if err != nil {
		return false, err
	}
	if !ok || pdu.RoomID != roomID {
		return false, nil
	}
	worldReadable, err := g.graph.WorldReadable(ctx, roomID)
	if err != nil {
		return false, err
	}
	if worldReadable {
		return true, nil
	}
	return g.graph.ServerInRoom(ctx, roomID, origin)
}
