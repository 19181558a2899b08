// Package errors provides structured error types for the Colport export
// pipeline. All errors include a category, code, message, and retryable
// flag so every stage failure surfaces to the caller with its original
// kind intact.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by pipeline stage.
type ErrorCategory string

const (
	ErrCategoryConnection ErrorCategory = "CONNECTION"
	ErrCategoryQuery      ErrorCategory = "QUERY"
	ErrCategorySchema     ErrorCategory = "SCHEMA"
	ErrCategoryEncoding   ErrorCategory = "ENCODING"
	ErrCategoryIO         ErrorCategory = "IO"
	ErrCategoryManifest   ErrorCategory = "MANIFEST"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Connection codes
	CodeDialFailed        = "DIAL_FAILED"
	CodeUnsupportedDriver = "UNSUPPORTED_DRIVER"
	CodeNotOpen           = "NOT_OPEN"

	// Query codes
	CodeQueryRejected  = "QUERY_REJECTED"
	CodeRowScanFailed  = "ROW_SCAN_FAILED"
	CodeColumnMetadata = "COLUMN_METADATA"

	// Schema codes
	CodeTypeConflict  = "TYPE_CONFLICT"
	CodeArityMismatch = "ARITY_MISMATCH"

	// Encoding codes
	CodeKindMismatch       = "KIND_MISMATCH"
	CodeBadMagic           = "BAD_MAGIC"
	CodeUnsupportedVersion = "UNSUPPORTED_VERSION"
	CodeChecksumMismatch   = "CHECKSUM_MISMATCH"
	CodeCorruptBlock       = "CORRUPT_BLOCK"

	// IO codes
	CodeCreateFailed = "CREATE_FAILED"
	CodeWriteFailed  = "WRITE_FAILED"
	CodeReadFailed   = "READ_FAILED"

	// Manifest codes
	CodeCatalogOpenFailed = "CATALOG_OPEN_FAILED"
	CodeRecordFailed      = "RECORD_FAILED"
	CodeExportNotFound    = "EXPORT_NOT_FOUND"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"
	CodeDeleteFailed   = "DELETE_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// ColportError is the structured error type used throughout the pipeline.
type ColportError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *ColportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *ColportError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *ColportError) Is(target error) bool {
	var t *ColportError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new ColportError.
func New(category ErrorCategory, code, message string) *ColportError {
	return &ColportError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new ColportError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *ColportError {
	return &ColportError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *ColportError) WithDetails(details map[string]interface{}) *ColportError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var ce *ColportError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a ColportError.
func GetCategory(err error) ErrorCategory {
	var ce *ColportError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a ColportError.
func GetCode(err error) string {
	var ce *ColportError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable. Only transient
// network-facing failures qualify; pipeline-stage failures never retry.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryConnection && code == CodeDialFailed:
		return true
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewConnectionError(code, message string, cause error) *ColportError {
	return Wrap(ErrCategoryConnection, code, message, cause)
}

func NewQueryError(code, message string, cause error) *ColportError {
	return Wrap(ErrCategoryQuery, code, message, cause)
}

func NewSchemaError(code, message string) *ColportError {
	return New(ErrCategorySchema, code, message)
}

func NewEncodingError(code, message string) *ColportError {
	return New(ErrCategoryEncoding, code, message)
}

func NewIOError(code, message string, cause error) *ColportError {
	return Wrap(ErrCategoryIO, code, message, cause)
}

func NewManifestError(code, message string, cause error) *ColportError {
	return Wrap(ErrCategoryManifest, code, message, cause)
}

func NewStorageError(code, message string, cause error) *ColportError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewInternalError(message string, cause error) *ColportError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
