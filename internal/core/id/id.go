// Package id generates identifiers for ledger records, events and audit entries.
// IDs are UUIDv7, so they sort by creation time.
package id

import (
	"github.com/google/uuid"
)

// ID is the identifier type used across the module.
type ID = uuid.UUID

// New returns a UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse panics on invalid input. Tests and constants only.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

func IsNil(v ID) bool {
	return v == uuid.Nil
}
