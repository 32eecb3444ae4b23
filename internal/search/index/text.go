package index

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint returns a sha256 (hex) over the ordered documents. Any change in
// content or row order changes the fingerprint.
func Fingerprint(docs []string) string {
	h := sha256.New()
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(docs)))
	h.Write(n[:])
	for _, d := range docs {
		binary.LittleEndian.PutUint64(n[:], uint64(len(d)))
		h.Write(n[:])
		h.Write([]byte(d))
	}
	return hex.EncodeToString(h.Sum(nil))
}
