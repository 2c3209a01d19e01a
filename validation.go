package mixfs

import (
	"fmt"
	"io"
)

// Input validation helpers shared by the cipher, handles and archives

// ValidateBuffer rejects a nil buf, and one shorter than minSize when
// minSize is positive
func ValidateBuffer(buf []byte, name string, minSize int) error {
	if buf == nil {
		return &ValidationError{
			Field:   name,
			Message: "nil buffer",
			Err:     ErrNilBuffer,
		}
	}
	if minSize > 0 && len(buf) < minSize {
		return &ValidationError{
			Field:   name,
			Value:   len(buf),
			Message: fmt.Sprintf("%d bytes, need at least %d", len(buf), minSize),
		}
	}
	return nil
}

// ValidateOffset checks if a file offset is valid
func ValidateOffset(offset int64, name string) error {
	if offset < 0 {
		return &ValidationError{
			Field:   name,
			Value:   offset,
			Message: "offset cannot be negative",
			Err:     ErrNegativeOffset,
		}
	}
	return nil
}

// ValidateWhence checks a Seek whence argument
func ValidateWhence(whence int) error {
	switch whence {
	case io.SeekStart, io.SeekCurrent, io.SeekEnd:
		return nil
	}
	return &ValidationError{
		Field:   "whence",
		Value:   whence,
		Message: fmt.Sprintf("invalid whence: %d", whence),
		Err:     ErrInvalidWhence,
	}
}

// ValidateKey checks a Blowfish key length (1 to 56 bytes)
func ValidateKey(key []byte) error {
	if len(key) < MinKeySize || len(key) > MaxKeySize {
		return &ValidationError{
			Field:   "key",
			Value:   len(key),
			Message: fmt.Sprintf("invalid key size: got %d bytes, expected %d to %d bytes", len(key), MinKeySize, MaxKeySize),
			Err:     ErrInvalidKey,
		}
	}
	return nil
}

// ValidateName checks that a lookup name is usable
func ValidateName(name string) error {
	if name == "" {
		return &ValidationError{
			Field:   "name",
			Message: "file name cannot be empty",
		}
	}
	return nil
}

// resolveSeek computes the target of a Seek against the current position and
// size. Shared by every handle implementation so that whence handling agrees.
func resolveSeek(pos, size, offset int64, whence int) (int64, error) {
	if err := ValidateWhence(whence); err != nil {
		return 0, err
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = pos + offset
	case io.SeekEnd:
		target = size + offset
	}

	if err := ValidateOffset(target, "position"); err != nil {
		return 0, err
	}
	return target, nil
}
