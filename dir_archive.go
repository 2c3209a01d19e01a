package mixfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/absfs/absfs"
)

// DirArchive passes handle operations straight through to files in one
// directory of the base filesystem. It is the only writable archive.
type DirArchive struct {
	fs       absfs.FileSystem
	dir      string
	caseFold bool

	mu      sync.Mutex
	handles handleTable[*dirHandle]
}

type dirHandle struct {
	f    absfs.File
	name string
	mode OpenMode
}

// NewDirArchive creates a directory-backed archive rooted at dir
func NewDirArchive(base absfs.FileSystem, dir string, caseFold bool) (*DirArchive, error) {
	if base == nil {
		return nil, fmt.Errorf("base filesystem cannot be nil")
	}

	info, err := base.Stat(dir)
	if err != nil {
		return nil, NewIOError("stat", dir, err)
	}
	if !info.IsDir() {
		return nil, NewValidationError("dir", dir, "not a directory")
	}

	return &DirArchive{
		fs:       base,
		dir:      dir,
		caseFold: caseFold,
	}, nil
}

// resolve joins name under the root; leading ".." elements cannot escape it.
func (d *DirArchive) resolve(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return path.Join(d.dir, path.Clean("/"+name))
}

// candidates lists the spellings tried for a read-only open
func (d *DirArchive) candidates(name string) []string {
	if !d.caseFold {
		return []string{name}
	}
	lower, upper := strings.ToLower(name), strings.ToUpper(name)
	c := []string{name}
	if lower != name {
		c = append(c, lower)
	}
	if upper != name && upper != lower {
		c = append(c, upper)
	}
	return c
}

// Open opens name relative to the root directory. Write modes create the
// file; ModeWrite alone truncates it.
func (d *DirArchive) Open(name string, mode OpenMode) (HandleID, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}

	var flag int
	switch mode {
	case ModeRead:
		flag = os.O_RDONLY
	case ModeWrite:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case ModeReadWrite:
		flag = os.O_RDWR | os.O_CREATE
	default:
		return 0, NewValidationError("mode", mode, "unsupported open mode")
	}

	names := []string{name}
	if mode == ModeRead {
		names = d.candidates(name)
	}

	var lastErr error
	for _, n := range names {
		p := d.resolve(n)
		if mode == ModeRead {
			info, err := d.fs.Stat(p)
			if err != nil {
				lastErr = err
				continue
			}
			if info.IsDir() {
				lastErr = fs.ErrNotExist
				continue
			}
		}

		f, err := d.fs.OpenFile(p, flag, 0644)
		if err != nil {
			lastErr = err
			continue
		}

		d.mu.Lock()
		id := d.handles.insert(&dirHandle{f: f, name: p, mode: mode})
		d.mu.Unlock()
		return id, nil
	}

	if isNotExist(lastErr) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return 0, NewIOError("open", d.resolve(name), lastErr)
}

func (d *DirArchive) handle(op string, id HandleID) (*dirHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handles.get(op, id)
}

// Close closes the underlying file of the handle
func (d *DirArchive) Close(id HandleID) error {
	d.mu.Lock()
	h, err := d.handles.remove(id)
	d.mu.Unlock()
	if err != nil {
		return err
	}

	if err := h.f.Close(); err != nil {
		return NewIOError("close", h.name, err)
	}
	return nil
}

// Read reads from the handle's current position
func (d *DirArchive) Read(id HandleID, p []byte) (int, error) {
	h, err := d.handle("read", id)
	if err != nil {
		return 0, err
	}
	if !h.mode.canRead() {
		return 0, NewUsageError("read", h.name, ErrWriteOnly)
	}

	n, err := h.f.Read(p)
	if err != nil && err != io.EOF {
		return n, NewIOError("read", h.name, err)
	}
	return n, err
}

// Write writes at the handle's current position
func (d *DirArchive) Write(id HandleID, p []byte) (int, error) {
	h, err := d.handle("write", id)
	if err != nil {
		return 0, err
	}
	if !h.mode.canWrite() {
		return 0, NewUsageError("write", h.name, ErrReadOnly)
	}

	n, err := h.f.Write(p)
	if err != nil {
		return n, NewIOError("write", h.name, err)
	}
	return n, nil
}

// Flush commits written data to stable storage
func (d *DirArchive) Flush(id HandleID) error {
	h, err := d.handle("flush", id)
	if err != nil {
		return err
	}
	if !h.mode.canWrite() {
		return NewUsageError("flush", h.name, ErrReadOnly)
	}

	if err := h.f.Sync(); err != nil {
		return NewIOError("flush", h.name, err)
	}
	return nil
}

// Seek moves the handle's position
func (d *DirArchive) Seek(id HandleID, offset int64, whence int) (int64, error) {
	h, err := d.handle("seek", id)
	if err != nil {
		return 0, err
	}
	if err := ValidateWhence(whence); err != nil {
		return 0, err
	}

	pos, err := h.f.Seek(offset, whence)
	if err != nil {
		return pos, NewIOError("seek", h.name, err)
	}
	return pos, nil
}

// Tell returns the handle's position
func (d *DirArchive) Tell(id HandleID) (int64, error) {
	return d.Seek(id, 0, io.SeekCurrent)
}

// Size returns the current size of the file
func (d *DirArchive) Size(id HandleID) (int64, error) {
	h, err := d.handle("size", id)
	if err != nil {
		return 0, err
	}

	info, err := h.f.Stat()
	if err != nil {
		return 0, NewIOError("stat", h.name, err)
	}
	return info.Size(), nil
}

// Path returns the root directory
func (d *DirArchive) Path() string {
	return d.dir
}

// Writable reports true; directories accept new files
func (d *DirArchive) Writable() bool {
	return true
}

// Release is a no-op: every handle owns its own file.
func (d *DirArchive) Release() error {
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}
