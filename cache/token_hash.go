package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/edulab-dev/lms-bridge/domain"
)

// HashKey derives a fixed-length cache key from a (subject, service) pair,
// keeping raw user ids out of cache backends.
func HashKey(userID string, service domain.Service) string {
	hasher := sha256.New()
	hasher.Write([]byte(userID))
	hasher.Write([]byte{'|'})
	hasher.Write([]byte(service))
	return hex.EncodeToString(hasher.Sum(nil))
}
