package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	maxCollectionID = 63
	hashLen         = 12
)

var unsafeIDChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// CollectionID derives a storage-safe collection identifier from a file name
// and its content: the sanitized name stem plus a short content hash. The
// same bytes always map to the same collection; different files sharing a
// name do not collide.
func CollectionID(name string, data []byte) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = unsafeIDChars.ReplaceAllString(strings.ToLower(stem), "_")
	stem = strings.Trim(stem, "_-")
	if stem == "" {
		stem = "doc"
	}
	if max := maxCollectionID - hashLen - 1; len(stem) > max {
		stem = strings.TrimRight(stem[:max], "_-")
	}

	sum := sha256.Sum256(data)
	return stem + "-" + hex.EncodeToString(sum[:])[:hashLen]
}
