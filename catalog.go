package mixfs

import "sync"

// CatalogEntry locates a file inside one of the loaded MIX archives
type CatalogEntry struct {
	Archive int   // load index of the owning archive
	Offset  int64 // absolute offset within that archive's container
	Size    int64
}

// Catalog maps MIX ids to entries across every archive loaded into it.
//
// Loading an archive whose records share an id with an earlier archive
// replaces the earlier entry: the most recently loaded archive wins. Entries
// are never merged.
type Catalog struct {
	mu      sync.RWMutex
	entries map[uint32]CatalogEntry
	loads   []catalogLoad
	next    int
}

// catalogLoad remembers one archive's records so the map can be replayed
// when an archive is dropped.
type catalogLoad struct {
	index   int
	records []MixRecord
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		entries: make(map[uint32]CatalogEntry),
	}
}

// add inserts an archive's records and returns the load index assigned to it.
func (c *Catalog) add(records []MixRecord) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.next
	c.next++
	c.loads = append(c.loads, catalogLoad{index: idx, records: records})
	c.insertLocked(idx, records)
	return idx
}

// drop removes an archive and replays the remaining ones in load order, so
// an entry shadowed by the dropped archive becomes visible again.
func (c *Catalog) drop(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.loads[:0]
	for _, l := range c.loads {
		if l.index != index {
			kept = append(kept, l)
		}
	}
	c.loads = kept

	c.entries = make(map[uint32]CatalogEntry, len(c.entries))
	for _, l := range c.loads {
		c.insertLocked(l.index, l.records)
	}
}

func (c *Catalog) insertLocked(index int, records []MixRecord) {
	for _, r := range records {
		c.entries[r.ID] = CatalogEntry{
			Archive: index,
			Offset:  int64(r.Offset),
			Size:    int64(r.Size),
		}
	}
}

// Lookup returns the entry currently registered for id
func (c *Catalog) Lookup(id uint32) (CatalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	return e, ok
}

// Len returns the number of distinct ids in the catalog
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
