package mixfs

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/absfs/absfs"
)

// SearchRoot is one priority tier of the VFS: an optional directory plus the
// MIX archives that were found in it. Within a root the directory is
// consulted before its archives, and archives in the order they were loaded.
type SearchRoot struct {
	Path     string
	Dir      *DirArchive
	Archives []*MixArchive
}

// archives lists the root's archives, the directory first
func (r *SearchRoot) archives() []Archive {
	out := make([]Archive, 0, len(r.Archives)+1)
	if r.Dir != nil {
		out = append(out, r.Dir)
	}
	for _, a := range r.Archives {
		out = append(out, a)
	}
	return out
}

func (r *SearchRoot) release() error {
	var errs []error
	for _, a := range r.Archives {
		if err := a.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.Dir != nil {
		if err := r.Dir.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// VFS resolves names across an ordered list of search roots. The first root
// that has a name serves it; nothing is merged across roots.
//
// All MIX archives loaded into one VFS share a Catalog, so an id present in
// two archives resolves to whichever was loaded last.
type VFS struct {
	base       absfs.FileSystem
	config     *Config
	logger     *slog.Logger
	catalog    *Catalog
	extensions []string

	mu    sync.Mutex
	roots []*SearchRoot
}

// New creates an empty VFS over the base filesystem
func New(base absfs.FileSystem, config *Config) (*VFS, error) {
	if base == nil {
		return nil, fmt.Errorf("base filesystem cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &VFS{
		base:       base,
		config:     config,
		logger:     config.logger(),
		catalog:    NewCatalog(),
		extensions: config.extensions(),
	}, nil
}

// Catalog returns the id catalog shared by the VFS's MIX archives
func (v *VFS) Catalog() *Catalog {
	return v.catalog
}

// Roots returns a snapshot of the search roots in priority order
func (v *VFS) Roots() []*SearchRoot {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]*SearchRoot, len(v.roots))
	copy(out, v.roots)
	return out
}

// isArchiveName reports whether name carries one of the archive extensions
func (v *VFS) isArchiveName(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range v.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Add appends a search root. A directory becomes a root holding the
// directory itself and every archive directly inside it, loaded in name
// order; an archive that fails to parse is logged and skipped. A single
// archive file becomes a root of its own.
func (v *VFS) Add(p string) error {
	if err := ValidateName(p); err != nil {
		return err
	}

	info, err := v.base.Stat(p)
	if err != nil {
		if isNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return NewIOError("stat", p, err)
	}

	var root *SearchRoot
	if info.IsDir() {
		root, err = v.scanDir(p)
	} else {
		var a *MixArchive
		a, err = v.openArchive(p)
		root = &SearchRoot{Path: p, Archives: []*MixArchive{a}}
	}
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.roots = append(v.roots, root)
	v.mu.Unlock()

	v.logger.Info("search root added", "path", p, "dir", root.Dir != nil, "archives", len(root.Archives))
	return nil
}

func (v *VFS) scanDir(dir string) (*SearchRoot, error) {
	d, err := NewDirArchive(v.base, dir, v.config.CaseFold)
	if err != nil {
		return nil, err
	}

	f, err := v.base.Open(dir)
	if err != nil {
		return nil, NewIOError("open", dir, err)
	}
	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		return nil, NewIOError("readdir", dir, err)
	}
	sort.Strings(names)

	root := &SearchRoot{Path: dir, Dir: d}
	for _, name := range names {
		if !v.isArchiveName(name) {
			continue
		}
		p := path.Join(dir, name)
		if info, err := v.base.Stat(p); err != nil || info.IsDir() {
			continue
		}

		a, err := v.openArchive(p)
		if err != nil {
			v.logger.Warn("archive skipped", "path", p, "error", err)
			continue
		}
		root.Archives = append(root.Archives, a)
	}
	return root, nil
}

func (v *VFS) openArchive(p string) (*MixArchive, error) {
	a, err := OpenMixArchive(v.base, p, v.catalog)
	if err != nil {
		return nil, err
	}
	v.logArchive(a)
	return a, nil
}

func (v *VFS) logArchive(a *MixArchive) {
	h := a.Header()
	v.logger.Info("archive loaded",
		"path", a.Path(),
		"variant", h.Variant.String(),
		"entries", h.FileCount,
		"encrypted", h.Encrypted,
	)
}

// LoadArchive opens name through the VFS and mounts it as a MIX archive in
// a root of its own at the end of the search order. The container may
// itself live inside another archive.
func (v *VFS) LoadArchive(name string) (*MixArchive, error) {
	f, err := v.Open(name)
	if err != nil {
		return nil, err
	}

	a, err := newMixArchive(f, name, v.catalog)
	if err != nil {
		f.Close()
		return nil, err
	}
	v.logArchive(a)

	v.mu.Lock()
	v.roots = append(v.roots, &SearchRoot{Path: name, Archives: []*MixArchive{a}})
	v.mu.Unlock()
	return a, nil
}

// findArchive returns the loaded archive whose base name matches name
func (v *VFS) findArchive(name string) *MixArchive {
	v.mu.Lock()
	defer v.mu.Unlock()

	want := baseName(name)
	for _, r := range v.roots {
		for _, a := range r.Archives {
			if strings.EqualFold(baseName(a.Path()), want) {
				return a
			}
		}
	}
	return nil
}

// Open opens name for reading from the first root that has it. The error
// wraps ErrNotFound when no root does.
func (v *VFS) Open(name string) (*File, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	roots := v.Roots()
	for _, r := range roots {
		if r.Dir != nil {
			id, err := r.Dir.Open(name, ModeRead)
			if err == nil {
				return newFile(r.Dir, id, name, ModeRead), nil
			}
			if !IsNotFound(err) {
				return nil, err
			}
		}
		for _, a := range r.Archives {
			if owner, e, ok := resolvePacked(roots, a, name); ok {
				return newFile(owner, owner.openEntry(name, e), name, ModeRead), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// resolvePacked reports whether a packs name. If so, it returns the archive
// that serves that id, which is the archive that owns it in the shared
// catalog. The owner may sit in a later root than a.
func resolvePacked(roots []*SearchRoot, a *MixArchive, name string) (*MixArchive, CatalogEntry, bool) {
	id, ok := a.recordID(name)
	if !ok {
		return nil, CatalogEntry{}, false
	}

	if e, ok := a.catalog.Lookup(id); ok {
		for _, r := range roots {
			for _, m := range r.Archives {
				if m.catalog == a.catalog && m.index == e.Archive {
					return m, e, true
				}
			}
		}
	}

	// The owner is no longer mounted; serve this archive's own copy
	e, _ := a.ownEntry(id)
	return a, e, true
}

// OpenWrite opens name for writing in the first directory root that accepts
// it, creating or truncating the file. Archives never take writes.
func (v *VFS) OpenWrite(name string) (*File, error) {
	return v.OpenFile(name, ModeWrite)
}

// OpenFile opens name with the given mode. ModeRead behaves like Open; any
// mode that writes behaves like OpenWrite.
func (v *VFS) OpenFile(name string, mode OpenMode) (*File, error) {
	if !mode.canWrite() {
		return v.Open(name)
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	var lastErr error
	for _, r := range v.Roots() {
		for _, a := range r.archives() {
			if !a.Writable() {
				continue
			}
			id, err := a.Open(name, mode)
			if err != nil {
				lastErr = err
				continue
			}
			return newFile(a, id, name, mode), nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoWritableRoot, name, lastErr)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoWritableRoot, name)
}

// Remove drops every root added under path. Files already open stay usable
// until closed.
func (v *VFS) Remove(p string) error {
	v.mu.Lock()
	var removed []*SearchRoot
	kept := v.roots[:0]
	for _, r := range v.roots {
		if r.Path == p {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	v.roots = kept
	v.mu.Unlock()

	if len(removed) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRoot, p)
	}

	var errs []error
	for _, r := range removed {
		if err := r.release(); err != nil {
			errs = append(errs, err)
		}
		v.logger.Info("search root removed", "path", r.Path)
	}
	return errors.Join(errs...)
}

// RemoveAll drops every root
func (v *VFS) RemoveAll() error {
	v.mu.Lock()
	roots := v.roots
	v.roots = nil
	v.mu.Unlock()

	var errs []error
	for _, r := range roots {
		if err := r.release(); err != nil {
			errs = append(errs, err)
		}
		v.logger.Info("search root removed", "path", r.Path)
	}
	return errors.Join(errs...)
}

// Close drops every root. Open files keep working until they are closed.
func (v *VFS) Close() error {
	return v.RemoveAll()
}
