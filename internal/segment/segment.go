// Package segment turns device names and catalog text into the sub-word units
// used by the vector model.
//
// Chinese text has no whitespace between words, so tokens come from a
// dictionary-driven segmenter rather than from splitting on spaces or runes.
package segment

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-ego/gse"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer splits text into tokens.
//
// Implementations must be deterministic for the same input and must be safe
// for concurrent use once constructed.
type Tokenizer interface {
	// Name identifies the tokenizer in cache manifests. A model fitted with one
	// tokenizer is not reusable with another.
	Name() string
	Tokenize(text string) []string
}

// Normalize folds text into the form used for matching: NFKC (full-width
// letters and digits become half-width) and lower case.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// Segmenter is a Tokenizer backed by the gse dictionary segmenter in search
// mode, which also emits the dictionary sub-words of long words.
type Segmenter struct {
	seg gse.Segmenter
}

var _ Tokenizer = (*Segmenter)(nil)

// NewSegmenter loads the embedded Chinese dictionary.
func NewSegmenter() (*Segmenter, error) {
	s := &Segmenter{}
	s.seg.SkipLog = true
	if err := s.seg.LoadDictEmbed(); err != nil {
		return nil, fmt.Errorf("cannot load segmentation dictionary: %w", err)
	}
	return s, nil
}

var (
	defaultOnce sync.Once
	defaultSeg  *Segmenter
	defaultErr  error
)

// Default returns a process-wide Segmenter, loading the dictionary on first use.
func Default() (*Segmenter, error) {
	defaultOnce.Do(func() {
		defaultSeg, defaultErr = NewSegmenter()
	})
	return defaultSeg, defaultErr
}

// Name implements Tokenizer.
func (s *Segmenter) Name() string { return "gse-search/1" }

// Tokenize implements Tokenizer. Blank tokens are dropped.
func (s *Segmenter) Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	words := s.seg.CutSearch(text, true)
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}
