package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Checksum returns the SHA-256 digest of a data section.
func Checksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

// VerifyChecksum recomputes the digest of data and compares it with stored.
// The returned error wraps ErrChecksumMismatch.
func VerifyChecksum(data []byte, stored [ChecksumSize]byte) error {
	got := Checksum(data)
	if got != stored {
		return fmt.Errorf("%w: stored %s, computed %s",
			ErrChecksumMismatch, short(stored[:]), short(got[:]))
	}
	return nil
}

func short(sum []byte) string {
	return hex.EncodeToString(sum[:6])
}
