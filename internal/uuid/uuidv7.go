// Package uuid generates time-ordered identifiers for database keys.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string. Version 7 identifiers embed a millisecond
// timestamp in the high bits, so rows keyed by them stay roughly in
// insertion order inside btree indexes.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; a v4 key is still unique.
		return googleuuid.New().String()
	}
	return id.String()
}

// Parse normalizes a UUID string, returning an error for malformed input.
func Parse(s string) (string, error) {
	id, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IsValid reports whether s parses as a UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
