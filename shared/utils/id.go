package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a random identifier for correlating requests.
func GenerateID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an identifier a client may
// propagate. Anything else is replaced by a fresh one.
func ValidID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		if !(r == '-' || r == '_' || r == '.' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
