package mixfs

import (
	"errors"
	"fmt"
)

// Error types represent different categories of errors

// ValidationError represents a configuration or parameter validation error
type ValidationError struct {
	Field   string // The field or parameter that failed validation
	Value   any    // The invalid value
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UsageError reports a call the handle or archive can never satisfy, such as
// reading from a write-only handle or writing into a MIX archive.
type UsageError struct {
	Operation string // "read", "write", "open", ...
	Path      string // Name the handle was opened with, if known
	Err       error  // One of the usage sentinels below
}

func (e *UsageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("usage error: %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("usage error: %s: %v", e.Operation, e.Err)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// IOError represents a file system I/O error
type IOError struct {
	Operation string // "read", "write", "seek", "open", "close", etc.
	Path      string // File path
	Offset    int64  // File offset, if applicable
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" && e.Offset >= 0 {
		return fmt.Sprintf("io error: %s %s at offset %d: %s", e.Operation, e.Path, e.Offset, e.Message)
	} else if e.Path != "" {
		return fmt.Sprintf("io error: %s %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("io error: %s: %s", e.Operation, e.Message)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// FormatError represents a MIX container whose header or index is not
// consistent. The archive is rejected; other archives are unaffected.
type FormatError struct {
	Path    string // Container path
	Offset  int64  // Header offset where the problem was found, -1 if none
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *FormatError) Error() string {
	if e.Path != "" && e.Offset >= 0 {
		return fmt.Sprintf("format error: %s at offset %d: %s", e.Path, e.Offset, e.Message)
	} else if e.Path != "" {
		return fmt.Sprintf("format error: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("format error: %s", e.Message)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// CryptoError reports a broken invariant in the key unwrap routine. It points
// at a defect in the embedded public key, never at bad input data.
type CryptoError struct {
	Operation string // "init" or "unwrap"
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto invariant violation: %s: %s", e.Operation, e.Message)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// Common sentinel errors
var (
	ErrNotFound       = errors.New("file not found in any search root")
	ErrReadOnly       = errors.New("handle is read-only")
	ErrWriteOnly      = errors.New("handle is write-only")
	ErrClosed         = errors.New("handle already released")
	ErrInvalidHandle  = errors.New("unknown handle id")
	ErrNoWritableRoot = errors.New("no writable search root accepts the name")
	ErrUnknownRoot    = errors.New("no search root with that path")
	ErrNotDir         = errors.New("not a directory")
	ErrInvalidKey     = errors.New("invalid blowfish key")
	ErrNilBuffer      = errors.New("buffer cannot be nil")
	ErrNegativeOffset = errors.New("negative offset not allowed")
	ErrInvalidWhence  = errors.New("invalid whence")
	ErrNilConfig      = errors.New("config cannot be nil")
)

// Helper functions for creating structured errors

// NewValidationError creates a new validation error
func NewValidationError(field string, value any, message string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewUsageError creates a new usage error
func NewUsageError(operation, path string, err error) error {
	return &UsageError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewIOError creates a new I/O error
func NewIOError(operation, path string, err error) error {
	return &IOError{
		Operation: operation,
		Path:      path,
		Offset:    -1,
		Message:   err.Error(),
		Err:       err,
	}
}

// newIOErrorAt creates an I/O error pinned to an absolute container offset
func newIOErrorAt(operation, path string, offset int64, err error) error {
	return &IOError{
		Operation: operation,
		Path:      path,
		Offset:    offset,
		Message:   err.Error(),
		Err:       err,
	}
}

// NewFormatError creates a new format error
func NewFormatError(path string, offset int64, message string) error {
	return &FormatError{
		Path:    path,
		Offset:  offset,
		Message: message,
	}
}

// wrapFormatError creates a format error around an underlying read failure
func wrapFormatError(path string, offset int64, message string, err error) error {
	return &FormatError{
		Path:    path,
		Offset:  offset,
		Message: fmt.Sprintf("%s: %v", message, err),
		Err:     err,
	}
}

// NewCryptoError creates a new crypto invariant violation
func NewCryptoError(operation, message string) error {
	return &CryptoError{
		Operation: operation,
		Message:   message,
	}
}

// Error checking helpers

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUsageError checks if an error is a usage error
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// IsIOError checks if an error is an I/O error
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

// IsFormatError checks if an error is a format error
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsCryptoError checks if an error is a crypto invariant violation
func IsCryptoError(err error) bool {
	var ce *CryptoError
	return errors.As(err, &ce)
}

// IsNotFound checks if an error reports a name absent from every root
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
