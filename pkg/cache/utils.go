package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// GenerateKey creates a cache key from its parts.
func GenerateKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// HashKey returns the hex SHA-256 of data, used to key results by request content.
func HashKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
