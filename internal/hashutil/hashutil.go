package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashStrings returns a SHA256 hash of the provided strings with newline separators.
func HashStrings(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Short returns the first 12 hex characters of HashStrings, enough to stay
// unique within a run while fitting in log lines and report rows.
func Short(parts ...string) string {
	return HashStrings(parts...)[:12]
}
