package mixfs

import (
	"io"
	"os"
	"path"
	"time"

	"github.com/absfs/absfs"
)

// FileSystem exposes a VFS as an absfs.FileSystem. Reads resolve through the
// search roots, so packed files are visible next to loose ones. Writes and
// every change to the tree go to the first directory root.
type FileSystem struct {
	vfs *VFS
	cwd string
}

var _ absfs.FileSystem = (*FileSystem)(nil)

// FileSystem returns an absfs view of the VFS
func (v *VFS) FileSystem() *FileSystem {
	return &FileSystem{vfs: v, cwd: "/"}
}

// abs resolves name against the working directory
func (m *FileSystem) abs(name string) string {
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	return path.Join(m.cwd, name)
}

// writable returns the first directory root, which receives every change
func (m *FileSystem) writable(op, name string) (*DirArchive, error) {
	for _, r := range m.vfs.Roots() {
		for _, a := range r.archives() {
			if d, ok := a.(*DirArchive); ok && d.Writable() {
				return d, nil
			}
		}
	}
	return nil, &os.PathError{Op: op, Path: name, Err: ErrNoWritableRoot}
}

// target maps name to its path in the base filesystem under the first
// directory root
func (m *FileSystem) target(op, name string) (string, error) {
	d, err := m.writable(op, name)
	if err != nil {
		return "", err
	}
	return d.resolve(m.abs(name)), nil
}

// Separator returns the path separator
func (m *FileSystem) Separator() uint8 {
	return '/'
}

// ListSeparator returns the list separator
func (m *FileSystem) ListSeparator() uint8 {
	return ':'
}

// Chdir changes the current working directory
func (m *FileSystem) Chdir(dir string) error {
	info, err := m.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "chdir", Path: dir, Err: ErrNotDir}
	}
	m.cwd = m.abs(dir)
	return nil
}

// Getwd returns the current working directory
func (m *FileSystem) Getwd() (string, error) {
	return m.cwd, nil
}

// TempDir returns the temporary directory of the base filesystem
func (m *FileSystem) TempDir() string {
	return m.vfs.base.TempDir()
}

// Open opens a file for reading
func (m *FileSystem) Open(name string) (absfs.File, error) {
	return m.OpenFile(name, os.O_RDONLY, 0)
}

// Create creates or truncates a file in the first directory root
func (m *FileSystem) Create(name string) (absfs.File, error) {
	return m.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// OpenFile opens a file with the specified flags and permissions. Read-only
// opens search every root; anything else opens the file under the first
// directory root.
func (m *FileSystem) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		p, err := m.target("open", name)
		if err != nil {
			return nil, err
		}
		return m.vfs.base.OpenFile(p, flag, perm)
	}

	abs := m.abs(name)
	for _, r := range m.vfs.Roots() {
		if r.Dir == nil {
			continue
		}
		if p := r.Dir.resolve(abs); isDir(m.vfs.base, p) {
			return m.vfs.base.OpenFile(p, flag, perm)
		}
	}

	f, err := m.vfs.Open(abs)
	if err != nil {
		if IsNotFound(err) {
			return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
		}
		return nil, err
	}
	return &mixFile{File: f}, nil
}

func isDir(base absfs.FileSystem, p string) bool {
	info, err := base.Stat(p)
	return err == nil && info.IsDir()
}

// Mkdir creates a directory
func (m *FileSystem) Mkdir(name string, perm os.FileMode) error {
	p, err := m.target("mkdir", name)
	if err != nil {
		return err
	}
	return m.vfs.base.Mkdir(p, perm)
}

// MkdirAll creates a directory and all necessary parent directories
func (m *FileSystem) MkdirAll(name string, perm os.FileMode) error {
	p, err := m.target("mkdir", name)
	if err != nil {
		return err
	}
	return m.vfs.base.MkdirAll(p, perm)
}

// Remove removes a loose file or empty directory. Packed files cannot be
// removed.
func (m *FileSystem) Remove(name string) error {
	p, err := m.target("remove", name)
	if err != nil {
		return err
	}
	return m.vfs.base.Remove(p)
}

// RemoveAll removes a path and any children it contains
func (m *FileSystem) RemoveAll(name string) error {
	p, err := m.target("removeall", name)
	if err != nil {
		return err
	}
	return m.vfs.base.RemoveAll(p)
}

// Rename renames (moves) a loose file
func (m *FileSystem) Rename(oldpath, newpath string) error {
	o, err := m.target("rename", oldpath)
	if err != nil {
		return err
	}
	n, err := m.target("rename", newpath)
	if err != nil {
		return err
	}
	return m.vfs.base.Rename(o, n)
}

// Stat returns file information from the first root that has name
func (m *FileSystem) Stat(name string) (os.FileInfo, error) {
	abs := m.abs(name)
	roots := m.vfs.Roots()
	for _, r := range roots {
		if r.Dir != nil {
			if info, err := m.vfs.base.Stat(r.Dir.resolve(abs)); err == nil {
				return info, nil
			}
		}
		for _, a := range r.Archives {
			if _, e, ok := resolvePacked(roots, a, abs); ok {
				return &entryInfo{name: path.Base(abs), size: e.Size}, nil
			}
		}
	}
	return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
}

// Chmod changes the mode of a loose file
func (m *FileSystem) Chmod(name string, mode os.FileMode) error {
	p, err := m.target("chmod", name)
	if err != nil {
		return err
	}
	return m.vfs.base.Chmod(p, mode)
}

// Chtimes changes the access and modification times of a loose file
func (m *FileSystem) Chtimes(name string, atime time.Time, mtime time.Time) error {
	p, err := m.target("chtimes", name)
	if err != nil {
		return err
	}
	return m.vfs.base.Chtimes(p, atime, mtime)
}

// Chown changes the owner and group of a loose file
func (m *FileSystem) Chown(name string, uid, gid int) error {
	p, err := m.target("chown", name)
	if err != nil {
		return err
	}
	return m.vfs.base.Chown(p, uid, gid)
}

// Truncate truncates a loose file to a specified size
func (m *FileSystem) Truncate(name string, size int64) error {
	p, err := m.target("truncate", name)
	if err != nil {
		return err
	}
	return m.vfs.base.Truncate(p, size)
}

// mixFile adapts a read-only *File to absfs.File
type mixFile struct {
	*File
}

var _ absfs.File = (*mixFile)(nil)

// Sync is a no-op for read-only files
func (f *mixFile) Sync() error {
	return nil
}

// Stat returns the name and size of the file
func (f *mixFile) Stat() (os.FileInfo, error) {
	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	return &entryInfo{name: path.Base(f.name), size: size}, nil
}

// Readdir fails: files are never directories
func (f *mixFile) Readdir(n int) ([]os.FileInfo, error) {
	return nil, &os.PathError{Op: "readdir", Path: f.name, Err: ErrNotDir}
}

// Readdirnames fails: files are never directories
func (f *mixFile) Readdirnames(n int) ([]string, error) {
	return nil, &os.PathError{Op: "readdirnames", Path: f.name, Err: ErrNotDir}
}

// ReadAt reads at off without moving the position used by Read
func (f *mixFile) ReadAt(b []byte, off int64) (n int, err error) {
	if err := ValidateBuffer(b, "buffer", 0); err != nil {
		return 0, err
	}
	if err := ValidateOffset(off, "offset"); err != nil {
		return 0, err
	}

	pos, err := f.Tell()
	if err != nil {
		return 0, err
	}
	defer func() {
		if _, serr := f.Seek(pos, io.SeekStart); serr != nil && err == nil {
			err = serr
		}
	}()

	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	if off >= size {
		return 0, io.EOF
	}
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}

	n, err = io.ReadFull(f.File, b)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

// WriteAt fails: the file is read-only
func (f *mixFile) WriteAt(b []byte, off int64) (int, error) {
	return 0, NewUsageError("write", f.name, ErrReadOnly)
}

// Truncate fails: the file is read-only
func (f *mixFile) Truncate(size int64) error {
	return NewUsageError("truncate", f.name, ErrReadOnly)
}

// entryInfo describes a file served from a MIX archive
type entryInfo struct {
	name string
	size int64
}

func (e *entryInfo) Name() string       { return e.name }
func (e *entryInfo) Size() int64        { return e.size }
func (e *entryInfo) Mode() os.FileMode  { return 0444 }
func (e *entryInfo) ModTime() time.Time { return time.Time{} }
func (e *entryInfo) IsDir() bool        { return false }
func (e *entryInfo) Sys() any           { return nil }
