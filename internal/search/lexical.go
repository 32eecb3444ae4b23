package search

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
	"github.com/kamusis/medclass/internal/catalog"
)

// ContentKey returns a deterministic 64-bit BLAKE2b key for s.
// Identical strings always produce identical keys.
func ContentKey(s string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(s))
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// LexicalIndex maps the content key of each record's composite index back to
// the record, so string-only fuzzy matches can be resolved to full records.
//
// Records sharing a composite index share a key; the last one registered wins.
type LexicalIndex struct {
	byKey map[uint64]catalog.Record
}

// NewLexicalIndex indexes records in catalog order.
func NewLexicalIndex(records []catalog.Record) *LexicalIndex {
	ix := &LexicalIndex{byKey: make(map[uint64]catalog.Record, len(records))}
	for _, r := range records {
		ix.byKey[ContentKey(r.CompositeIndex())] = r
	}
	return ix
}

// Lookup returns the record registered for the composite index text.
func (ix *LexicalIndex) Lookup(text string) (catalog.Record, bool) {
	r, ok := ix.byKey[ContentKey(text)]
	return r, ok
}

// Len returns the number of distinct keys.
func (ix *LexicalIndex) Len() int { return len(ix.byKey) }
