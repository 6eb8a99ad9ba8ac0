// Package idgen mints the 128-bit opaque identifiers used throughout the
// panel's data model and the daemon's in-memory state, plus the handful of
// deterministic derivations that other identifiers are built from.
package idgen

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// New returns a fresh random (v4) opaque identifier. Every row in
// internal/panel/model and every entry in internal/daemon/state uses one of
// these as its primary key — never an auto-increment integer, so that panel
// and daemon can mint IDs independently without colliding.
func New() uuid.UUID {
	return uuid.New()
}

// Parse validates and parses a textual identifier, e.g. one arriving on a
// route parameter or in a JWT claim.
func Parse(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// EngineName returns the name a container's identifier is given inside the
// container engine. The engine driver never reuses a human-supplied name,
// both to avoid collisions across tenants and so a container can be looked
// up by ID alone without tracking a separate name mapping.
func EngineName(id uuid.UUID) string {
	return id.String()
}

// FTPUsername derives the jailed file-transfer username for a container from
// its identifier: the first 8 hex characters, with no separators. It is
// deterministic so the daemon never has to persist a separate username
// mapping alongside the credential store entry keyed by container ID.
func FTPUsername(id uuid.UUID) string {
	b := id[:]
	return hex.EncodeToString(b[:4])
}
