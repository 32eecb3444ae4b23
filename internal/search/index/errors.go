package index

import "errors"

var (
	// ErrEmptyCorpus indicates a fit over zero documents.
	ErrEmptyCorpus = errors.New("cannot fit vector model: catalog is empty")

	// ErrEmptyVocabulary indicates documents that produced no terms.
	ErrEmptyVocabulary = errors.New("cannot fit vector model: empty vocabulary")

	// ErrTokenizerRequired indicates a missing tokenizer.
	ErrTokenizerRequired = errors.New("tokenizer required")

	// ErrTokenizerMismatch indicates a cached model fitted with another tokenizer.
	ErrTokenizerMismatch = errors.New("model was fitted with a different tokenizer")

	// ErrStaleModel indicates a cached model fitted over a different catalog.
	ErrStaleModel = errors.New("model fingerprint does not match catalog")
)
