package utils

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidID is returned for malformed or nil record ids
var ErrInvalidID = errors.New("invalid id")

var newUUIDv7 = uuid.NewV7

// GenerateUUIDv7 returns a time-ordered id so transfer rows sort by creation.
// A v4 id is used only if the v7 source fails.
func GenerateUUIDv7() uuid.UUID {
	id, err := newUUIDv7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// ParseID parses a canonical id from a path or query parameter. The nil id is rejected.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}
