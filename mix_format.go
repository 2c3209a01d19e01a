package mixfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MIX format constants
const (
	// Red Alert flags word, read little-endian from the first four bytes
	mixFlagChecksum  = 0x00010000
	mixFlagEncrypted = 0x00020000

	mixFlagsSize     = 4
	mixHeaderSize    = 6  // u16 file count + u32 data size
	mixEntrySize     = 12 // u32 id + u32 offset + u32 size
	mixChecksumSize  = 20 // SHA-1 digest after the data section
	mixTSAlignment   = 16
	mixLeadBlockSize = CipherBlockSize

	// tsMixDatabaseID is the id of "local mix database.dat" under the
	// Tiberian Sun hash; its presence marks a TS archive.
	tsMixDatabaseID = 0x366E051F
)

// Variant identifies the MIX format generation
type Variant uint8

const (
	// VariantTD is the flagless Tiberian Dawn layout
	VariantTD Variant = iota
	// VariantRA is the Red Alert layout with a leading flags word
	VariantRA
	// VariantTS is the Tiberian Sun refinement of the TD/RA layouts
	VariantTS
)

// String returns the string representation of the variant
func (v Variant) String() string {
	switch v {
	case VariantTD:
		return "td"
	case VariantRA:
		return "ra"
	case VariantTS:
		return "ts"
	default:
		return "unknown"
	}
}

// MixHeader describes a parsed MIX container header
type MixHeader struct {
	FileCount   uint16
	DataSize    uint32
	Checksummed bool
	Encrypted   bool
	Variant     Variant

	// DataOffset is the absolute offset of the data section; every
	// record offset in the index is relative to it on disk.
	DataOffset uint32
}

// MixRecord locates one contained file. Offset is absolute within the
// container file.
type MixRecord struct {
	ID     uint32
	Offset uint32
	Size   uint32
}

// mixFileHeader is the on-disk count/size pair
type mixFileHeader struct {
	FileCount uint16
	DataSize  uint32
}

// mixIndexEntry is the on-disk index triple
type mixIndexEntry struct {
	ID     uint32
	Offset uint32
	Size   uint32
}

// ReadMixIndex parses the header and index of a MIX container and returns
// the header together with records whose offsets are already absolute.
// path is only used in error messages.
func ReadMixIndex(r io.ReadSeeker, path string) (*MixHeader, []MixRecord, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, newIOErrorAt("seek", path, 0, err)
	}

	var lead [mixFlagsSize]byte
	if _, err := io.ReadFull(r, lead[:]); err != nil {
		return nil, nil, wrapFormatError(path, 0, "missing header", err)
	}
	flags := binary.LittleEndian.Uint32(lead[:])

	switch flags {
	case mixFlagChecksum, mixFlagEncrypted, mixFlagChecksum | mixFlagEncrypted:
		return readRAIndex(r, path, flags)
	case 0:
		// A zero word is either an empty TD archive or an RA archive
		// without flags; only the latter has a count after it.
		h, recs, err := readRAIndex(r, path, 0)
		if err == nil && h.FileCount > 0 {
			return h, recs, nil
		}
		return readTDIndex(r, path, false)
	default:
		return readTDIndex(r, path, true)
	}
}

// readTDIndex parses the flagless layout. When refine is set the result may
// be reclassified as Tiberian Sun.
func readTDIndex(r io.ReadSeeker, path string, refine bool) (*MixHeader, []MixRecord, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, newIOErrorAt("seek", path, 0, err)
	}

	var fh mixFileHeader
	if err := binary.Read(r, binary.LittleEndian, &fh); err != nil {
		return nil, nil, wrapFormatError(path, 0, "incomplete header", err)
	}
	if err := checkCount(path, 0, fh); err != nil {
		return nil, nil, err
	}

	entries := make([]mixIndexEntry, fh.FileCount)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		return nil, nil, wrapFormatError(path, mixHeaderSize, "incomplete index", err)
	}

	h := &MixHeader{
		FileCount:  fh.FileCount,
		DataSize:   fh.DataSize,
		Variant:    VariantTD,
		DataOffset: uint32(mixHeaderSize + len(entries)*mixEntrySize),
	}
	if refine && looksLikeTS(entries, true) {
		h.Variant = VariantTS
	}

	recs, err := rebase(path, h, entries)
	if err != nil {
		return nil, nil, err
	}
	return h, recs, nil
}

// readRAIndex parses the layout that follows a Red Alert flags word. The
// reader must be positioned just after the flags.
func readRAIndex(r io.ReadSeeker, path string, flags uint32) (*MixHeader, []MixRecord, error) {
	if _, err := r.Seek(mixFlagsSize, io.SeekStart); err != nil {
		return nil, nil, newIOErrorAt("seek", path, mixFlagsSize, err)
	}

	h := &MixHeader{
		Checksummed: flags&mixFlagChecksum != 0,
		Encrypted:   flags&mixFlagEncrypted != 0,
		Variant:     VariantRA,
	}

	var entries []mixIndexEntry
	if h.Encrypted {
		fh, e, indexLen, err := readEncryptedIndex(r, path)
		if err != nil {
			return nil, nil, err
		}
		h.FileCount, h.DataSize = fh.FileCount, fh.DataSize
		h.DataOffset = uint32(mixFlagsSize + KeyBlobSize + mixLeadBlockSize + indexLen)
		entries = e
	} else {
		var fh mixFileHeader
		if err := binary.Read(r, binary.LittleEndian, &fh); err != nil {
			return nil, nil, wrapFormatError(path, mixFlagsSize, "incomplete header", err)
		}
		if err := checkCount(path, mixFlagsSize, fh); err != nil {
			return nil, nil, err
		}
		entries = make([]mixIndexEntry, fh.FileCount)
		if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
			return nil, nil, wrapFormatError(path, mixFlagsSize+mixHeaderSize, "incomplete index", err)
		}
		h.FileCount, h.DataSize = fh.FileCount, fh.DataSize
		h.DataOffset = uint32(mixFlagsSize + mixHeaderSize + len(entries)*mixEntrySize)
	}

	if looksLikeTS(entries, false) {
		h.Variant = VariantTS
	}

	recs, err := rebase(path, h, entries)
	if err != nil {
		return nil, nil, err
	}
	return h, recs, nil
}

// readEncryptedIndex recovers the Blowfish key from the key blob, then
// decrypts the lead block (which carries the real count and size) and the
// index that follows. The index starts inside the lead block: its last two
// bytes are the low bytes of the first id.
func readEncryptedIndex(r io.Reader, path string) (mixFileHeader, []mixIndexEntry, int, error) {
	var fh mixFileHeader

	blob := make([]byte, KeyBlobSize)
	if _, err := io.ReadFull(r, blob); err != nil {
		return fh, nil, 0, wrapFormatError(path, mixFlagsSize, "incomplete key blob", err)
	}

	key, err := UnwrapKey(blob)
	if err != nil {
		return fh, nil, 0, err
	}
	ck, err := NewCipherKey(key)
	if err != nil {
		return fh, nil, 0, err
	}

	leadOffset := int64(mixFlagsSize + KeyBlobSize)
	var lead [mixLeadBlockSize]byte
	if _, err := io.ReadFull(r, lead[:]); err != nil {
		return fh, nil, 0, wrapFormatError(path, leadOffset, "incomplete encrypted header", err)
	}
	ck.DecipherStream(lead[:])

	fh.FileCount = binary.LittleEndian.Uint16(lead[0:2])
	fh.DataSize = binary.LittleEndian.Uint32(lead[2:6])
	if err := checkCount(path, leadOffset, fh); err != nil {
		return fh, nil, 0, err
	}

	indexLen := roundUp(int(fh.FileCount)*mixEntrySize, CipherBlockSize)
	block := make([]byte, indexLen)
	if _, err := io.ReadFull(r, block); err != nil {
		return fh, nil, 0, wrapFormatError(path, leadOffset+mixLeadBlockSize, "incomplete encrypted index", err)
	}
	ck.DecipherStream(block)

	plain := make([]byte, 0, 2+indexLen)
	plain = append(plain, lead[mixHeaderSize:]...)
	plain = append(plain, block...)

	entries := make([]mixIndexEntry, fh.FileCount)
	if err := binary.Read(bytes.NewReader(plain), binary.LittleEndian, entries); err != nil {
		return fh, nil, 0, wrapFormatError(path, leadOffset, "decrypted index too short", err)
	}

	return fh, entries, indexLen, nil
}

// checkCount rejects a file count whose index could not fit in the declared
// data size. This bounds the index allocation before it is made.
func checkCount(path string, offset int64, fh mixFileHeader) error {
	if uint64(fh.FileCount)*mixEntrySize > uint64(fh.DataSize) {
		return NewFormatError(path, offset, fmt.Sprintf("file count %d exceeds data size %d", fh.FileCount, fh.DataSize))
	}
	return nil
}

// looksLikeTS reports whether an index belongs to a Tiberian Sun archive.
// The mix database id is conclusive; 16-byte aligned offsets across more
// than one entry are accepted when aligned is set.
func looksLikeTS(entries []mixIndexEntry, aligned bool) bool {
	for _, e := range entries {
		if e.ID == tsMixDatabaseID {
			return true
		}
	}
	if !aligned || len(entries) < 2 {
		return false
	}
	for _, e := range entries {
		if e.Offset%mixTSAlignment != 0 {
			return false
		}
	}
	return true
}

// rebase converts on-disk offsets, relative to the end of the header, into
// absolute container offsets.
func rebase(path string, h *MixHeader, entries []mixIndexEntry) ([]MixRecord, error) {
	recs := make([]MixRecord, len(entries))
	for i, e := range entries {
		abs := uint64(h.DataOffset) + uint64(e.Offset)
		if abs > math.MaxUint32 || abs+uint64(e.Size) > math.MaxUint32+1 {
			return nil, NewFormatError(path, int64(h.DataOffset), fmt.Sprintf("entry %08X lies beyond 4GB", e.ID))
		}
		recs[i] = MixRecord{ID: e.ID, Offset: uint32(abs), Size: e.Size}
	}
	return recs, nil
}

func roundUp(n, align int) int {
	return (n + align - 1) / align * align
}
