package rag

import (
	"errors"
	"fmt"
	"log/slog"
)

// Category classifies pipeline failures so callers can branch on the
// failing stage without string matching.
type Category int

const (
	// CategoryUnknown is the zero value for errors that predate classification.
	CategoryUnknown Category = iota
	// CategoryValidation covers malformed requests rejected before the pipeline runs.
	CategoryValidation
	// CategoryRetrievalEmpty signals a well-formed query that matched no documents.
	CategoryRetrievalEmpty
	// CategoryRetrieval covers retrieval backend failures, as opposed to an
	// empty result.
	CategoryRetrieval
	// CategoryCache covers cache backend failures. The orchestrator degrades
	// on these rather than failing the query, but they are still surfaced to
	// callers of the cache API directly.
	CategoryCache
	// CategoryAssembly signals that no retrieved fragment survived filtering.
	CategoryAssembly
	// CategoryGeneration signals that every configured provider failed.
	CategoryGeneration
)

// String returns a stable name for logging and metric labels.
func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryRetrievalEmpty:
		return "retrieval_empty"
	case CategoryRetrieval:
		return "retrieval"
	case CategoryCache:
		return "cache"
	case CategoryAssembly:
		return "assembly"
	case CategoryGeneration:
		return "generation"
	default:
		return "unknown"
	}
}

// Error is a category-aware error that carries metadata for structured
// logging.
//
// It implements the standard error interface and supports Go's error
// wrapping (errors.Is, errors.As, errors.Unwrap). Metadata is attached as
// slog.Attr tags.
//
// Example:
//
//	err := rag.WrapErr(rag.CategoryGeneration, cause, "all providers failed")
//	err.Tag(slog.String("tenant", tenantID))
//	return err
type Error struct {
	category Category
	msg      string
	cause    error
	attrs    []slog.Attr
}

// NewErr creates a new categorized error with no underlying cause.
func NewErr(category Category, msg string) *Error {
	return &Error{category: category, msg: msg}
}

// WrapErr wraps an existing error with a category and message.
func WrapErr(category Category, err error, msg string) *Error {
	return &Error{category: category, msg: msg, cause: err}
}

// Tag adds a slog.Attr to the error for structured logging.
// Returns the error for fluent chaining.
func (e *Error) Tag(attr slog.Attr) *Error {
	e.attrs = append(e.attrs, attr)
	return e
}

// Tags adds multiple slog.Attr to the error.
func (e *Error) Tags(attrs ...slog.Attr) *Error {
	e.attrs = append(e.attrs, attrs...)
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Category returns the failure classification.
func (e *Error) Category() Category {
	return e.category
}

// Message returns the error message without the cause.
func (e *Error) Message() string {
	return e.msg
}

// Attrs returns the slog attributes, with the category prepended.
// Useful for logging the error with all its metadata.
func (e *Error) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)
	attrs = append(attrs, slog.String("category", e.category.String()))
	if e.cause != nil {
		attrs = append(attrs, slog.Any("error", e.cause))
	}
	attrs = append(attrs, e.attrs...)
	return attrs
}

// CategoryOf extracts the Category from err or any error it wraps.
// Returns CategoryUnknown when err carries no classification.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.category
	}
	return CategoryUnknown
}

// IsValidation reports whether err is classified as a request validation failure.
func IsValidation(err error) bool { return CategoryOf(err) == CategoryValidation }

// IsRetrievalEmpty reports whether err signals an empty retrieval result.
func IsRetrievalEmpty(err error) bool { return CategoryOf(err) == CategoryRetrievalEmpty }

// IsRetrieval reports whether err is a retrieval backend failure.
func IsRetrieval(err error) bool { return CategoryOf(err) == CategoryRetrieval }

// IsCache reports whether err is a cache backend failure.
func IsCache(err error) bool { return CategoryOf(err) == CategoryCache }

// IsAssembly reports whether err signals that no fragment survived assembly.
func IsAssembly(err error) bool { return CategoryOf(err) == CategoryAssembly }

// IsGeneration reports whether err signals that all providers failed.
func IsGeneration(err error) bool { return CategoryOf(err) == CategoryGeneration }
