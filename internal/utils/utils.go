// Package utils holds small shared helpers used by the reference host
// runtime implementations.
package utils

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewUUID generates a random UUID v4, hex-encoded, for use as a session
// or correlation identifier in the reference host runtime.
func NewUUID() string {
	newUUID := uuid.New()
	return hex.EncodeToString(newUUID[:])
}
