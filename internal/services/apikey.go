package services

import (
	"strings"

	"github.com/google/uuid"
)

const apiKeyPrefix = "gc_"

// GenerateAPIKey returns a new opaque key tagged with the runtime
// environment: gc_live_<32 hex> in production, gc_test_<32 hex> elsewhere.
func GenerateAPIKey(production bool) string {
	env := "test"
	if production {
		env = "live"
	}
	return apiKeyPrefix + env + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
