// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"testing"
)

func TestParseRoomID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "!abc123:hearth.local", false},
		{"valid with port", "!abc:hearth.local:8448", false},
		{"empty", "", true},
		{"missing sigil", "abc123:hearth.local", true},
		{"wrong sigil", "@abc123:hearth.local", true},
		{"missing server", "!abc123", true},
		{"empty localpart", "!:hearth.local", true},
		{"empty server", "!abc123:", true},
		{"control character", "!abc\x01:hearth.local", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			parsed, err := ParseRoomID(test.input)
			if test.wantErr {
				if err == nil {
					t.Fatalf("ParseRoomID(%q): expected error, got %v", test.input, parsed)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRoomID(%q): %v", test.input, err)
			}
			if parsed.String() != test.input {
				t.Errorf("String() = %q, want %q", parsed.String(), test.input)
			}
		})
	}
}

func TestUserIDParts(t *testing.T) {
	user := MustParseUserID("@alice:hearth.local")
	if got := user.Localpart(); got != "alice" {
		t.Errorf("Localpart() = %q, want %q", got, "alice")
	}
	if got := user.Server().String(); got != "hearth.local" {
		t.Errorf("Server() = %q, want %q", got, "hearth.local")
	}
}

func TestRoomIDServer(t *testing.T) {
	room := MustParseRoomID("!r:example.com:8448")
	if got := room.Server().String(); got != "example.com:8448" {
		t.Errorf("Server() = %q, want %q", got, "example.com:8448")
	}
}

func TestParseEventID(t *testing.T) {
	if _, err := ParseEventID("$abc"); err != nil {
		t.Fatalf("ParseEventID($abc): %v", err)
	}
	for _, invalid := range []string{"", "$", "abc"} {
		if _, err := ParseEventID(invalid); err == nil {
			t.Errorf("ParseEventID(%q): expected error", invalid)
		}
	}
}

func TestParseServerName(t *testing.T) {
	if _, err := ParseServerName("hearth.local"); err != nil {
		t.Fatalf("ParseServerName: %v", err)
	}
	for _, invalid := range []string{"", "@bad", "has\x00null"} {
		if _, err := ParseServerName(invalid); err == nil {
			t.Errorf("ParseServerName(%q): expected error", invalid)
		}
	}
}

func TestJSONRoundtrip(t *testing.T) {
	type payload struct {
		Room  RoomID  `json:"room"`
		User  UserID  `json:"user"`
		Event EventID `json:"event"`
	}
	original := payload{
		Room:  MustParseRoomID("!r:hearth.local"),
		User:  MustParseUserID("@alice:hearth.local"),
		Event: MustParseEventID("$abcdef"),
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded payload
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestZeroEventIDMarshalsEmpty(t *testing.T) {
	// The append path serializes events with the ID unset to compute
	// the reference hash; a zero EventID must not be a marshal error.
	data, err := json.Marshal(EventID{})
	if err != nil {
		t.Fatalf("Marshal zero EventID: %v", err)
	}
	if string(data) != `""` {
		t.Errorf("zero EventID marshaled to %s, want \"\"", data)
	}
}
