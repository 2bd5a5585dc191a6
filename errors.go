package medibook

import (
	"errors"

	"github.com/nqureshi/medibook/rag"
)

var (
	// ErrMalformedInput is returned when a source PDF cannot be read.
	ErrMalformedInput = errors.New("medibook: malformed input document")

	// ErrNoChapterSpec is returned when a chapter-category book has no
	// entry in the chapter specification.
	ErrNoChapterSpec = errors.New("medibook: no chapter specification for book")

	// ErrEmptyContent is returned when a book yields no usable pages.
	ErrEmptyContent = errors.New("medibook: no extractable content")

	// ErrUnsupportedFormat is returned for non-PDF inputs.
	ErrUnsupportedFormat = errors.New("medibook: unsupported document format")

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = errors.New("medibook: embedding generation failed")

	// ErrLLMRequestFailed is returned when an LLM request fails.
	ErrLLMRequestFailed = errors.New("medibook: LLM request failed")

	// ErrStoreClosed is returned when operating on a closed pipeline.
	ErrStoreClosed = errors.New("medibook: store is closed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("medibook: invalid configuration")

	// ErrNoResults is returned when retrieval yields no matching chunks.
	ErrNoResults = rag.ErrNoResults
)
