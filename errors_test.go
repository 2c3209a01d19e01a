package mixfs

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name: "with field",
			err: &ValidationError{
				Field:   "search_paths[0]",
				Value:   "",
				Message: "search path cannot be empty",
			},
			wantMsg: "validation error: search_paths[0]: search path cannot be empty",
		},
		{
			name: "without field",
			err: &ValidationError{
				Message: "invalid configuration",
			},
			wantMsg: "validation error: invalid configuration",
		},
		{
			name: "with wrapped error",
			err: &ValidationError{
				Field:   "key",
				Message: "invalid key size",
				Err:     ErrInvalidKey,
			},
			wantMsg: "validation error: key: invalid key size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}

			// Test Unwrap
			if tt.err.Err != nil {
				if unwrapped := tt.err.Unwrap(); unwrapped != tt.err.Err {
					t.Errorf("ValidationError.Unwrap() = %v, want %v", unwrapped, tt.err.Err)
				}
			}
		})
	}
}

func TestUsageError(t *testing.T) {
	tests := []struct {
		name    string
		err     *UsageError
		wantMsg string
	}{
		{
			name:    "with path",
			err:     &UsageError{Operation: "write", Path: "RULES.INI", Err: ErrReadOnly},
			wantMsg: "usage error: write RULES.INI: handle is read-only",
		},
		{
			name:    "without path",
			err:     &UsageError{Operation: "read", Err: ErrInvalidHandle},
			wantMsg: "usage error: read: unknown handle id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("UsageError.Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, tt.err.Err) {
				t.Errorf("UsageError should wrap %v", tt.err.Err)
			}
		})
	}
}

func TestIOError(t *testing.T) {
	baseErr := errors.New("disk full")

	tests := []struct {
		name    string
		err     *IOError
		wantMsg string
	}{
		{
			name: "with path and offset",
			err: &IOError{
				Operation: "read",
				Path:      "/game/conquer.mix",
				Offset:    1024,
				Message:   "unexpected EOF",
				Err:       baseErr,
			},
			wantMsg: "io error: read /game/conquer.mix at offset 1024: unexpected EOF",
		},
		{
			name: "with path only",
			err: &IOError{
				Operation: "open",
				Path:      "/game/conquer.mix",
				Offset:    -1,
				Message:   "permission denied",
			},
			wantMsg: "io error: open /game/conquer.mix: permission denied",
		},
		{
			name: "without path",
			err: &IOError{
				Operation: "sync",
				Message:   "device busy",
			},
			wantMsg: "io error: sync: device busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("IOError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name    string
		err     *FormatError
		wantMsg string
	}{
		{
			name:    "with offset",
			err:     &FormatError{Path: "/game/main.mix", Offset: 4, Message: "file count 9 exceeds data size 10"},
			wantMsg: "format error: /game/main.mix at offset 4: file count 9 exceeds data size 10",
		},
		{
			name:    "without offset",
			err:     &FormatError{Path: "/game/main.mix", Offset: -1, Message: "bad header"},
			wantMsg: "format error: /game/main.mix: bad header",
		},
		{
			name:    "generic",
			err:     &FormatError{Offset: -1, Message: "bad header"},
			wantMsg: "format error: bad header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("FormatError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}

	wrapped := wrapFormatError("/x.mix", 6, "incomplete index", io.ErrUnexpectedEOF)
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("wrapFormatError should keep the underlying error")
	}
}

func TestCryptoError(t *testing.T) {
	err := &CryptoError{Operation: "init", Message: "modulus too small"}
	want := "crypto invariant violation: init: modulus too small"
	if got := err.Error(); got != want {
		t.Errorf("CryptoError.Error() = %q, want %q", got, want)
	}
}

func TestErrorCheckers(t *testing.T) {
	ve := &ValidationError{Message: "test"}
	ue := &UsageError{Operation: "write", Err: ErrReadOnly}
	ie := &IOError{Operation: "read", Message: "test"}
	fe := &FormatError{Message: "test"}
	ce := &CryptoError{Operation: "unwrap", Message: "test"}
	nf := fmt.Errorf("%w: RULES.INI", ErrNotFound)
	genericErr := errors.New("generic error")

	tests := []struct {
		name string
		err  error
		fn   func(error) bool
		want bool
	}{
		{"IsValidationError with ValidationError", ve, IsValidationError, true},
		{"IsValidationError with other error", genericErr, IsValidationError, false},
		{"IsUsageError with UsageError", ue, IsUsageError, true},
		{"IsUsageError with other error", genericErr, IsUsageError, false},
		{"IsIOError with IOError", ie, IsIOError, true},
		{"IsIOError with other error", genericErr, IsIOError, false},
		{"IsFormatError with FormatError", fe, IsFormatError, true},
		{"IsFormatError with wrapped FormatError", fmt.Errorf("load: %w", fe), IsFormatError, true},
		{"IsFormatError with other error", genericErr, IsFormatError, false},
		{"IsCryptoError with CryptoError", ce, IsCryptoError, true},
		{"IsCryptoError with other error", genericErr, IsCryptoError, false},
		{"IsNotFound with ErrNotFound", nf, IsNotFound, true},
		{"IsNotFound with other error", genericErr, IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.err); got != tt.want {
				t.Errorf("error checker = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	t.Run("NewValidationError", func(t *testing.T) {
		err := NewValidationError("field", 123, "invalid value")
		if !IsValidationError(err) {
			t.Error("NewValidationError should create ValidationError")
		}
		ve := err.(*ValidationError)
		if ve.Field != "field" || ve.Value != 123 || ve.Message != "invalid value" {
			t.Errorf("NewValidationError fields incorrect: %+v", ve)
		}
	})

	t.Run("NewUsageError", func(t *testing.T) {
		err := NewUsageError("write", "RULES.INI", ErrReadOnly)
		if !IsUsageError(err) || !errors.Is(err, ErrReadOnly) {
			t.Error("NewUsageError should create UsageError wrapping its sentinel")
		}
	})

	t.Run("NewIOError", func(t *testing.T) {
		baseErr := errors.New("test")
		err := NewIOError("read", "/path", baseErr)
		if !IsIOError(err) {
			t.Error("NewIOError should create IOError")
		}
		ie := err.(*IOError)
		if ie.Operation != "read" || ie.Path != "/path" || ie.Offset != -1 {
			t.Errorf("NewIOError fields incorrect: %+v", ie)
		}
		if !errors.Is(err, baseErr) {
			t.Error("NewIOError should wrap the underlying error")
		}
	})

	t.Run("newIOErrorAt", func(t *testing.T) {
		err := newIOErrorAt("read", "/path", 92, io.ErrUnexpectedEOF)
		ie := err.(*IOError)
		if ie.Offset != 92 {
			t.Errorf("newIOErrorAt offset = %d, want 92", ie.Offset)
		}
	})

	t.Run("NewFormatError", func(t *testing.T) {
		err := NewFormatError("/path", 6, "corrupted")
		if !IsFormatError(err) {
			t.Error("NewFormatError should create FormatError")
		}
		fe := err.(*FormatError)
		if fe.Path != "/path" || fe.Offset != 6 || fe.Message != "corrupted" {
			t.Errorf("NewFormatError fields incorrect: %+v", fe)
		}
	})

	t.Run("NewCryptoError", func(t *testing.T) {
		err := NewCryptoError("init", "bad key")
		if !IsCryptoError(err) {
			t.Error("NewCryptoError should create CryptoError")
		}
	})
}
