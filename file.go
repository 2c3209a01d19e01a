package mixfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// readChunkSize is the buffer ReadUntil scans per step
const readChunkSize = 256

// File is an open handle on one archive. It releases its backing id exactly
// once: the first Close releases it, later calls report ErrClosed.
//
// File implements io.Reader, io.Writer, io.Seeker and io.Closer, so it can be
// handed to anything that consumes a stream, including another MixArchive.
type File struct {
	archive  Archive
	id       HandleID
	name     string
	mode     OpenMode
	released bool
}

func newFile(a Archive, id HandleID, name string, mode OpenMode) *File {
	return &File{
		archive: a,
		id:      id,
		name:    name,
		mode:    mode,
	}
}

// Name returns the name the file was opened with
func (f *File) Name() string {
	return f.name
}

// Mode returns the mode the file was opened with
func (f *File) Mode() OpenMode {
	return f.mode
}

// Archive returns the archive that serves the file
func (f *File) Archive() Archive {
	return f.archive
}

func (f *File) check(op string, needRead, needWrite bool) error {
	if f.released {
		return NewUsageError(op, f.name, ErrClosed)
	}
	if needRead && !f.mode.canRead() {
		return NewUsageError(op, f.name, ErrWriteOnly)
	}
	if needWrite && !f.mode.canWrite() {
		return NewUsageError(op, f.name, ErrReadOnly)
	}
	return nil
}

// Read reads up to len(p) bytes. It returns io.EOF at the end of the file.
func (f *File) Read(p []byte) (int, error) {
	if err := f.check("read", true, false); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	return f.archive.Read(f.id, p)
}

// Write writes p at the current position
func (f *File) Write(p []byte) (int, error) {
	if err := f.check("write", false, true); err != nil {
		return 0, err
	}
	return f.archive.Write(f.id, p)
}

// WriteString writes a string at the current position
func (f *File) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

// Flush commits buffered writes
func (f *File) Flush() error {
	if err := f.check("flush", false, true); err != nil {
		return err
	}
	return f.archive.Flush(f.id)
}

// Seek sets the position for the next Read or Write
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.check("seek", false, false); err != nil {
		return 0, err
	}
	return f.archive.Seek(f.id, offset, whence)
}

// Tell returns the current position
func (f *File) Tell() (int64, error) {
	if err := f.check("tell", false, false); err != nil {
		return 0, err
	}
	return f.archive.Tell(f.id)
}

// Size returns the file size
func (f *File) Size() (int64, error) {
	if err := f.check("size", false, false); err != nil {
		return 0, err
	}
	return f.archive.Size(f.id)
}

// Close releases the handle
func (f *File) Close() error {
	if f.released {
		return NewUsageError("close", f.name, ErrClosed)
	}
	f.released = true
	return f.archive.Close(f.id)
}

// readFixed reads exactly len(p) bytes
func (f *File) readFixed(op string, p []byte) error {
	if err := f.check(op, true, false); err != nil {
		return err
	}
	if _, err := io.ReadFull(f, p); err != nil {
		return fmt.Errorf("%s %s: %w", op, f.name, err)
	}
	return nil
}

// ReadByte reads one byte
func (f *File) ReadByte() (byte, error) {
	var b [1]byte
	if err := f.readFixed("read byte", b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadWord reads a little-endian 16-bit value
func (f *File) ReadWord() (uint16, error) {
	var b [2]byte
	if err := f.readFixed("read word", b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// ReadThree reads a little-endian 24-bit value
func (f *File) ReadThree() (uint32, error) {
	var b [3]byte
	if err := f.readFixed("read three", b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

// ReadDWord reads a little-endian 32-bit value
func (f *File) ReadDWord() (uint32, error) {
	var b [4]byte
	if err := f.readFixed("read dword", b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadUntil returns the bytes up to delim, excluding it, and leaves the
// position just after the delimiter. A delimiter split across two reads is
// still found. When the file ends first, the remaining bytes are returned
// with io.EOF.
func (f *File) ReadUntil(delim []byte) ([]byte, error) {
	if err := f.check("read until", true, false); err != nil {
		return nil, err
	}
	if len(delim) == 0 {
		return nil, NewValidationError("delim", delim, "delimiter cannot be empty")
	}

	var acc []byte
	chunk := make([]byte, readChunkSize)
	for {
		n, err := f.archive.Read(f.id, chunk)
		if n > 0 {
			// Rescan from the last position a delimiter could start at.
			from := len(acc) - len(delim) + 1
			if from < 0 {
				from = 0
			}
			acc = append(acc, chunk[:n]...)

			if i := bytes.Index(acc[from:], delim); i >= 0 {
				end := from + i
				excess := int64(len(acc) - end - len(delim))
				if excess > 0 {
					if _, err := f.archive.Seek(f.id, -excess, io.SeekCurrent); err != nil {
						return nil, err
					}
				}
				return acc[:end], nil
			}
		}
		if err == io.EOF {
			return acc, io.EOF
		}
		if err != nil {
			return acc, err
		}
	}
}

// ReadLine reads one line terminated by "\n". The terminator and a trailing
// "\r" are stripped. The last line of a file may lack a terminator; it is
// returned without error and the next call reports io.EOF.
func (f *File) ReadLine() (string, error) {
	line, err := f.ReadUntil([]byte{'\n'})
	if err == io.EOF && len(line) > 0 {
		err = nil
	}
	if err != nil {
		return "", err
	}
	line = bytes.TrimSuffix(line, []byte{'\r'})
	return string(line), nil
}
