package snap

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// fingerprintChunkSize is the buffer size used when streaming file content
// through the digest. Memory footprint stays bounded by this regardless of
// file size.
const fingerprintChunkSize = 1 << 20

// Fingerprint streams r through SHA-256 and returns the canonical lowercase
// hex digest plus the number of bytes read. The empty stream yields the
// digest of the empty byte sequence.
func Fingerprint(r io.Reader) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, fingerprintChunkSize)
	n, err := io.CopyBuffer(h, r, buf)
	if err != nil {
		return "", 0, fmt.Errorf("hashing content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// FingerprintFile computes the content fingerprint of the file at path.
func FingerprintFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	hash, n, err := Fingerprint(f)
	if err != nil {
		return "", 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return hash, n, nil
}
