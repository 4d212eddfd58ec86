// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// parseSigilID splits a Matrix identifier of the form
// "<sigil>localpart:server" and validates its structure. Returns the
// localpart and server portions.
func parseSigilID(raw string, sigil byte, kind string) (localpart, server string, err error) {
	if raw == "" {
		return "", "", fmt.Errorf("empty %s", kind)
	}
	if raw[0] != sigil {
		return "", "", fmt.Errorf("%s must start with %q: %q", kind, string(sigil), raw)
	}
	if !utf8.ValidString(raw) {
		return "", "", fmt.Errorf("%s is not valid UTF-8: %q", kind, raw)
	}
	if strings.ContainsFunc(raw, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return "", "", fmt.Errorf("%s contains control characters: %q", kind, raw)
	}

	rest := raw[1:]
	colonIndex := strings.IndexByte(rest, ':')
	if colonIndex < 0 {
		return "", "", fmt.Errorf("%s missing ':server' suffix: %q", kind, raw)
	}
	if colonIndex == 0 {
		return "", "", fmt.Errorf("%s has empty localpart: %q", kind, raw)
	}

	localpart = rest[:colonIndex]
	server = rest[colonIndex+1:]
	if server == "" {
		return "", "", fmt.Errorf("%s has empty server name: %q", kind, raw)
	}
	return localpart, server, nil
}

// validateServer checks a bare server name: non-empty, valid UTF-8, no
// control characters, no Matrix sigils.
func validateServer(raw string) error {
	if raw == "" {
		return fmt.Errorf("empty server name")
	}
	if !utf8.ValidString(raw) {
		return fmt.Errorf("server name is not valid UTF-8: %q", raw)
	}
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("server name contains control characters: %q", raw)
		}
		if r == '@' || r == '!' || r == '#' || r == '$' {
			return fmt.Errorf("server name contains Matrix sigil %q: %q", string(r), raw)
		}
	}
	return nil
}
