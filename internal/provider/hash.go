package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/futig/chat-backend/internal/entity"
)

// hashedIDLength keeps provider-side identifiers short while leaving
// collisions negligible for abuse attribution.
const hashedIDLength = 16

// HashedUserID derives a stable pseudonymous identifier from the caller's
// email for provider-side attribution. The raw email never reaches a
// provider. Falls back to the opaque user id for callers without one.
func HashedUserID(u entity.User) string {
	source := strings.ToLower(strings.TrimSpace(u.Email))
	if source == "" {
		source = u.ID
	}
	if source == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:hashedIDLength]
}
