package storage

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// hashBufSize is the read-buffer size used while digesting uploads. Hashing
// never needs the whole file in memory.
const hashBufSize = 32 * 1024

// ContentHash streams r through SHA-256 and returns the digest as URL-safe
// base64 without padding, along with the number of bytes read.
func ContentHash(r io.Reader) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, hashBufSize)
	n, err := io.CopyBuffer(h, r, buf)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash content: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), n, nil
}
