package mixfs

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
)

// setupTestFS returns an OS-backed filesystem rooted in a temporary directory
func setupTestFS(t *testing.T) absfs.FileSystem {
	t.Helper()
	return &osTestFS{root: t.TempDir()}
}

// setupMemFS returns an empty in-memory filesystem
func setupMemFS(t *testing.T) absfs.FileSystem {
	t.Helper()

	fs, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("failed to create memfs: %v", err)
	}
	return fs
}

// osTestFS is a minimal filesystem implementation for testing
type osTestFS struct {
	root string
	cwd  string
}

func (fs *osTestFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	path := filepath.Join(fs.root, name)
	if flag&os.O_CREATE != 0 {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, flag, perm)
}

func (fs *osTestFS) Mkdir(name string, perm os.FileMode) error {
	return os.Mkdir(filepath.Join(fs.root, name), perm)
}

func (fs *osTestFS) MkdirAll(name string, perm os.FileMode) error {
	return os.MkdirAll(filepath.Join(fs.root, name), perm)
}

func (fs *osTestFS) Remove(name string) error {
	return os.Remove(filepath.Join(fs.root, name))
}

func (fs *osTestFS) RemoveAll(path string) error {
	return os.RemoveAll(filepath.Join(fs.root, path))
}

func (fs *osTestFS) Rename(oldpath, newpath string) error {
	return os.Rename(filepath.Join(fs.root, oldpath), filepath.Join(fs.root, newpath))
}

func (fs *osTestFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(filepath.Join(fs.root, name))
}

func (fs *osTestFS) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(filepath.Join(fs.root, name), mode)
}

func (fs *osTestFS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(filepath.Join(fs.root, name), atime, mtime)
}

func (fs *osTestFS) Chown(name string, uid, gid int) error {
	return os.Chown(filepath.Join(fs.root, name), uid, gid)
}

func (fs *osTestFS) Separator() uint8 {
	return os.PathSeparator
}

func (fs *osTestFS) ListSeparator() uint8 {
	return os.PathListSeparator
}

func (fs *osTestFS) Chdir(dir string) error {
	fs.cwd = dir
	return nil
}

func (fs *osTestFS) Getwd() (string, error) {
	if fs.cwd == "" {
		return "/", nil
	}
	return fs.cwd, nil
}

func (fs *osTestFS) TempDir() string {
	return os.TempDir()
}

func (fs *osTestFS) Open(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

func (fs *osTestFS) Create(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func (fs *osTestFS) Truncate(name string, size int64) error {
	return os.Truncate(filepath.Join(fs.root, name), size)
}

// writeTestFile creates name with data, making parent directories
func writeTestFile(t *testing.T, fs absfs.FileSystem, name string, data []byte) {
	t.Helper()

	if err := fs.MkdirAll(filepath.Dir(name), 0755); err != nil {
		t.Fatalf("failed to create parent of %s: %v", name, err)
	}
	f, err := fs.Create(name)
	if err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close %s: %v", name, err)
	}
}

// readFile reads a whole file from the filesystem
func readFile(t *testing.T, fs absfs.FileSystem, name string) []byte {
	t.Helper()

	f, err := fs.Open(name)
	if err != nil {
		t.Fatalf("failed to open %s: %v", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return data
}

// readAllFile drains a VFS file and closes it
func readAllFile(t *testing.T, f *File) []byte {
	t.Helper()
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("failed to read %s: %v", f.Name(), err)
	}
	return data
}

// testEntry is one file of a synthetic container
type testEntry struct {
	name string
	data []byte
}

// packIndex lays out the index and data section for entries. Data offsets
// are relative to the start of the data section.
func packIndex(entries []testEntry) (index, data []byte) {
	var ib, db bytes.Buffer
	for _, e := range entries {
		binary.Write(&ib, binary.LittleEndian, mixIndexEntry{
			ID:     IDOf(e.name),
			Offset: uint32(db.Len()),
			Size:   uint32(len(e.data)),
		})
		db.Write(e.data)
	}
	return ib.Bytes(), db.Bytes()
}

// buildTD builds a Tiberian Dawn container
func buildTD(entries []testEntry) []byte {
	index, data := packIndex(entries)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, mixFileHeader{
		FileCount: uint16(len(entries)),
		DataSize:  uint32(len(data)),
	})
	out.Write(index)
	out.Write(data)
	return out.Bytes()
}

// buildRA builds an unencrypted Red Alert container. A SHA-1 trailer is
// appended when the checksum flag is set.
func buildRA(flags uint32, entries []testEntry) []byte {
	index, data := packIndex(entries)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, flags)
	binary.Write(&out, binary.LittleEndian, mixFileHeader{
		FileCount: uint16(len(entries)),
		DataSize:  uint32(len(data)),
	})
	out.Write(index)
	out.Write(data)
	if flags&mixFlagChecksum != 0 {
		sum := sha1.Sum(data)
		out.Write(sum[:])
	}
	return out.Bytes()
}

// testKeyBlob is an arbitrary key blob; every 40-byte chunk stays below the
// modulus because its top byte is zero.
func testKeyBlob() []byte {
	blob := make([]byte, KeyBlobSize)
	for i := range blob {
		blob[i] = byte(i*7 + 3)
	}
	blob[39] = 0
	blob[79] = 0
	return blob
}

// buildEncryptedRA builds a Red Alert container with an encrypted index.
// The Blowfish key is whatever the blob unwraps to, so the parser must
// follow the same path to read it back.
func buildEncryptedRA(t testing.TB, flags uint32, entries []testEntry) []byte {
	t.Helper()

	blob := testKeyBlob()
	key, err := UnwrapKey(blob)
	if err != nil {
		t.Fatalf("UnwrapKey failed: %v", err)
	}
	ck, err := NewCipherKey(key)
	if err != nil {
		t.Fatalf("NewCipherKey failed: %v", err)
	}

	index, data := packIndex(entries)
	indexLen := roundUp(len(index), CipherBlockSize)

	// The header fields and the index form one plaintext stream split into
	// the lead block and the index block.
	var plain bytes.Buffer
	binary.Write(&plain, binary.LittleEndian, mixFileHeader{
		FileCount: uint16(len(entries)),
		DataSize:  uint32(len(data)),
	})
	plain.Write(index)
	stream := make([]byte, mixLeadBlockSize+indexLen)
	copy(stream, plain.Bytes())
	ck.EncipherStream(stream)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, flags|mixFlagEncrypted)
	out.Write(blob)
	out.Write(stream)
	out.Write(data)
	if flags&mixFlagChecksum != 0 {
		sum := sha1.Sum(data)
		out.Write(sum[:])
	}
	return out.Bytes()
}

// sampleEntries returns three entries with distinct content
func sampleEntries() []testEntry {
	return []testEntry{
		{name: "RULES.INI", data: []byte("[General]\r\nSpeed=4\r\n")},
		{name: "CONQUER.ENG", data: bytes.Repeat([]byte{0xAB}, 300)},
		{name: "TITLE.TXT", data: []byte("Command & Conquer")},
	}
}
