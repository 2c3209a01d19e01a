package mixfs

// HandleID names an open file within one archive. Ids come from a counter
// that only increases, so a released id is never handed out again.
type HandleID uint32

// OpenMode selects which operations a handle permits
type OpenMode uint8

const (
	// ModeRead permits reads and seeks
	ModeRead OpenMode = 1 << iota
	// ModeWrite permits writes, flushes and seeks
	ModeWrite
	// ModeReadWrite permits both
	ModeReadWrite = ModeRead | ModeWrite
)

func (m OpenMode) canRead() bool  { return m&ModeRead != 0 }
func (m OpenMode) canWrite() bool { return m&ModeWrite != 0 }

// String returns the string representation of the open mode
func (m OpenMode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeReadWrite:
		return "read-write"
	default:
		return "invalid"
	}
}

// Archive is the capability set shared by every backing store. Files are
// addressed by the HandleID returned from Open; File wraps one id with the
// usual io interfaces and the fixed-width readers.
//
// An archive's handle table belongs to that archive. Handles keep their own
// position, so two handles on the same archive never disturb each other.
type Archive interface {
	// Open resolves name and returns a handle. It returns an error
	// wrapping ErrNotFound when the archive has no such file.
	Open(name string, mode OpenMode) (HandleID, error)

	// Close releases the handle. Each id can be closed once.
	Close(id HandleID) error

	Read(id HandleID, p []byte) (int, error)
	Write(id HandleID, p []byte) (int, error)
	Flush(id HandleID) error
	Seek(id HandleID, offset int64, whence int) (int64, error)
	Tell(id HandleID) (int64, error)
	Size(id HandleID) (int64, error)

	// Path returns the display path of the archive
	Path() string

	// Writable reports whether Open accepts ModeWrite
	Writable() bool

	// Release detaches the archive. Handles already issued stay usable
	// until closed; underlying resources go away with the last of them.
	Release() error
}

// handleTable maps handle ids to per-handle state
type handleTable[T any] struct {
	next HandleID
	open map[HandleID]T
}

func (t *handleTable[T]) insert(v T) HandleID {
	if t.open == nil {
		t.open = make(map[HandleID]T)
	}
	t.next++
	t.open[t.next] = v
	return t.next
}

func (t *handleTable[T]) get(op string, id HandleID) (T, error) {
	v, ok := t.open[id]
	if !ok {
		var zero T
		return zero, NewUsageError(op, "", ErrInvalidHandle)
	}
	return v, nil
}

func (t *handleTable[T]) remove(id HandleID) (T, error) {
	v, err := t.get("close", id)
	if err != nil {
		return v, err
	}
	delete(t.open, id)
	return v, nil
}

func (t *handleTable[T]) len() int {
	return len(t.open)
}
