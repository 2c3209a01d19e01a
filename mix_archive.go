package mixfs

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"sync"

	"github.com/absfs/absfs"
)

// mixSource is the container a MixArchive reads from: a file of the base
// filesystem, or a File issued by a VFS for nested containers.
type mixSource interface {
	io.ReadSeeker
	io.Closer
}

// MixArchive serves the files packed in one MIX container. All handles share
// the container's single descriptor; every operation seeks it to
// record offset + handle position first, and reads never cross the end of
// the record.
type MixArchive struct {
	path    string
	header  *MixHeader
	records []MixRecord
	byID    map[uint32]int
	catalog *Catalog
	index   int

	mu       sync.Mutex
	src      mixSource
	handles  handleTable[*mixHandle]
	released bool
}

type mixHandle struct {
	name  string
	entry CatalogEntry
	pos   int64
}

// OpenMixArchive opens and indexes the MIX container at path. Its records
// are added to catalog, replacing entries of earlier archives that share an
// id. A nil catalog gives the archive a private one.
func OpenMixArchive(base absfs.FileSystem, path string, catalog *Catalog) (*MixArchive, error) {
	if base == nil {
		return nil, fmt.Errorf("base filesystem cannot be nil")
	}

	f, err := base.Open(path)
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, NewIOError("open", path, err)
	}

	a, err := newMixArchive(f, path, catalog)
	if err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

func newMixArchive(src mixSource, path string, catalog *Catalog) (*MixArchive, error) {
	header, records, err := ReadMixIndex(src, path)
	if err != nil {
		return nil, err
	}

	if catalog == nil {
		catalog = NewCatalog()
	}

	// Later records win, as they do in the catalog
	byID := make(map[uint32]int, len(records))
	for i, r := range records {
		byID[r.ID] = i
	}

	return &MixArchive{
		path:    path,
		header:  header,
		records: records,
		byID:    byID,
		catalog: catalog,
		index:   catalog.add(records),
		src:     src,
	}, nil
}

// Header returns the parsed container header
func (a *MixArchive) Header() MixHeader {
	return *a.header
}

// Variant returns the detected format generation
func (a *MixArchive) Variant() Variant {
	return a.header.Variant
}

// Records returns a copy of the container's index
func (a *MixArchive) Records() []MixRecord {
	out := make([]MixRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Index returns the load index the catalog assigned to this archive
func (a *MixArchive) Index() int {
	return a.index
}

// lookup finds the catalog entry for name if this archive currently owns it.
func (a *MixArchive) lookup(name string) (CatalogEntry, bool) {
	if e, ok := a.catalog.Lookup(IDOf(name)); ok && e.Archive == a.index {
		return e, true
	}
	if a.header.Variant == VariantTS {
		if e, ok := a.catalog.Lookup(TSIDOf(name)); ok && e.Archive == a.index {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// recordID returns the id under which this archive's own index packs name,
// whether or not a later archive shadows it in the catalog.
func (a *MixArchive) recordID(name string) (uint32, bool) {
	if id := IDOf(name); a.hasID(id) {
		return id, true
	}
	if a.header.Variant == VariantTS {
		if id := TSIDOf(name); a.hasID(id) {
			return id, true
		}
	}
	return 0, false
}

func (a *MixArchive) hasID(id uint32) bool {
	_, ok := a.byID[id]
	return ok
}

// ownEntry returns the entry of this archive's own record for id
func (a *MixArchive) ownEntry(id uint32) (CatalogEntry, bool) {
	i, ok := a.byID[id]
	if !ok {
		return CatalogEntry{}, false
	}
	r := a.records[i]
	return CatalogEntry{Archive: a.index, Offset: int64(r.Offset), Size: int64(r.Size)}, true
}

// openEntry issues a read handle over e, which must belong to this archive
func (a *MixArchive) openEntry(name string, e CatalogEntry) HandleID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handles.insert(&mixHandle{name: name, entry: e})
}

// Contains reports whether Open would find name in this archive
func (a *MixArchive) Contains(name string) bool {
	_, ok := a.lookup(name)
	return ok
}

// Open returns a read handle for name. MIX archives never accept writes.
func (a *MixArchive) Open(name string, mode OpenMode) (HandleID, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	if mode.canWrite() {
		return 0, NewUsageError("open", name, ErrReadOnly)
	}

	e, ok := a.lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return a.openEntry(name, e), nil
}

// OpenID returns a read file for the record with the given id, for records
// whose name is not known.
func (a *MixArchive) OpenID(id uint32) (*File, error) {
	name := fmt.Sprintf("%08X", id)

	e, ok := a.catalog.Lookup(id)
	if !ok || e.Archive != a.index {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return newFile(a, a.openEntry(name, e), name, ModeRead), nil
}

// Close releases the handle; the last close after Release also closes the
// container.
func (a *MixArchive) Close(id HandleID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.handles.remove(id); err != nil {
		return err
	}
	if a.released && a.handles.len() == 0 {
		return a.closeSourceLocked()
	}
	return nil
}

// Read reads from the handle's position, stopping at the end of the record.
func (a *MixArchive) Read(id HandleID, p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, err := a.handles.get("read", id)
	if err != nil {
		return 0, err
	}

	remaining := h.entry.Size - h.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	abs := h.entry.Offset + h.pos
	if _, err := a.src.Seek(abs, io.SeekStart); err != nil {
		return 0, newIOErrorAt("seek", a.path, abs, err)
	}

	n, err := io.ReadFull(a.src, p)
	h.pos += int64(n)
	if err != nil {
		return n, newIOErrorAt("read", a.path, abs+int64(n), err)
	}
	return n, nil
}

// Write always fails: MIX archives are read-only.
func (a *MixArchive) Write(id HandleID, p []byte) (int, error) {
	return 0, NewUsageError("write", a.path, ErrReadOnly)
}

// Flush always fails: MIX archives are read-only.
func (a *MixArchive) Flush(id HandleID) error {
	return NewUsageError("flush", a.path, ErrReadOnly)
}

// Seek moves the handle's position within the record. Positions past the
// end of the record are rejected.
func (a *MixArchive) Seek(id HandleID, offset int64, whence int) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, err := a.handles.get("seek", id)
	if err != nil {
		return 0, err
	}

	target, err := resolveSeek(h.pos, h.entry.Size, offset, whence)
	if err != nil {
		return h.pos, err
	}
	if target > h.entry.Size {
		return h.pos, NewValidationError("position", target, fmt.Sprintf("beyond end of %s (%d bytes)", h.name, h.entry.Size))
	}

	h.pos = target
	return h.pos, nil
}

// Tell returns the handle's position within the record
func (a *MixArchive) Tell(id HandleID) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, err := a.handles.get("tell", id)
	if err != nil {
		return 0, err
	}
	return h.pos, nil
}

// Size returns the size of the record
func (a *MixArchive) Size(id HandleID) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, err := a.handles.get("size", id)
	if err != nil {
		return 0, err
	}
	return h.entry.Size, nil
}

// Path returns the container path
func (a *MixArchive) Path() string {
	return a.path
}

// Writable reports false
func (a *MixArchive) Writable() bool {
	return false
}

// Release removes the archive's records from the catalog. The container
// stays open until the last outstanding handle is closed.
func (a *MixArchive) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return nil
	}
	a.released = true
	a.catalog.drop(a.index)

	if a.handles.len() == 0 {
		return a.closeSourceLocked()
	}
	return nil
}

func (a *MixArchive) closeSourceLocked() error {
	if a.src == nil {
		return nil
	}
	src := a.src
	a.src = nil
	if err := src.Close(); err != nil {
		return NewIOError("close", a.path, err)
	}
	return nil
}

// VerifyChecksum compares the SHA-1 digest stored after the data section
// with the data itself. Archives without the checksum flag pass trivially.
func (a *MixArchive) VerifyChecksum() error {
	if !a.header.Checksummed {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.src == nil {
		return NewUsageError("verify", a.path, ErrClosed)
	}

	start := int64(a.header.DataOffset)
	if _, err := a.src.Seek(start, io.SeekStart); err != nil {
		return newIOErrorAt("seek", a.path, start, err)
	}

	h := sha1.New()
	if _, err := io.CopyN(h, a.src, int64(a.header.DataSize)); err != nil {
		return wrapFormatError(a.path, start, "data section shorter than declared", err)
	}

	stored := make([]byte, mixChecksumSize)
	end := start + int64(a.header.DataSize)
	if _, err := io.ReadFull(a.src, stored); err != nil {
		return wrapFormatError(a.path, end, "missing checksum", err)
	}

	if !bytes.Equal(h.Sum(nil), stored) {
		return NewFormatError(a.path, end, "checksum mismatch")
	}
	return nil
}
