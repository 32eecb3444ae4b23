package search

import "errors"

var (
	// ErrTokenizerRequired is returned when a nil tokenizer is configured.
	ErrTokenizerRequired = errors.New("tokenizer required")
)
