package ingest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Corpus is the extracted content of one uploaded file, ready for indexing.
type Corpus struct {
	Filename    string
	Format      Format
	Fingerprint string // SHA-256 hex of the raw file bytes
	Chunks      []string
}

// Fingerprint returns the SHA-256 hex digest of the file bytes. It is the
// identity key for index caching: identical bytes always map to the same
// fingerprint, so re-uploads never trigger a second embedding pass.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
