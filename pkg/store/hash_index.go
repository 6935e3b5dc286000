package store

import (
	"sort"
	"sync"

	"github.com/segmentio/ksuid"
)

// HashIndex maps entry ids to their location in the journal
type HashIndex struct {
	entries map[ksuid.KSUID]*IndexEntry
	mutex   sync.RWMutex
}

// NewHashIndex creates a new hash index
func NewHashIndex() *HashIndex {
	return &HashIndex{
		entries: make(map[ksuid.KSUID]*IndexEntry),
	}
}

// Put adds or updates the index entry for an id
func (idx *HashIndex) Put(id ksuid.KSUID, entry *IndexEntry) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()
	idx.entries[id] = entry
}

// Get retrieves the index entry for an id
func (idx *HashIndex) Get(id ksuid.KSUID) (*IndexEntry, bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	entry, exists := idx.entries[id]
	return entry, exists
}

// Delete removes an id from the index
func (idx *HashIndex) Delete(id ksuid.KSUID) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()
	delete(idx.entries, id)
}

// Size returns the number of indexed entries
func (idx *HashIndex) Size() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	return len(idx.entries)
}

// Clear removes all entries from the index
func (idx *HashIndex) Clear() {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()
	idx.entries = make(map[ksuid.KSUID]*IndexEntry)
}

// IDs returns the indexed ids in journal order
func (idx *HashIndex) IDs() []ksuid.KSUID {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	ids := make([]ksuid.KSUID, 0, len(idx.entries))
	for id := range idx.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return idx.entries[ids[i]].Offset < idx.entries[ids[j]].Offset
	})
	return ids
}

// IDsOfType returns the ids of entries with the given type in journal order
func (idx *HashIndex) IDsOfType(typ string) []ksuid.KSUID {
	var out []ksuid.KSUID
	for _, id := range idx.IDs() {
		if e, ok := idx.Get(id); ok && e.Type == typ {
			out = append(out, id)
		}
	}
	return out
}

// BuildFromLog scans a journal and populates the index
func (idx *HashIndex) BuildFromLog(reader *LogReader) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries = make(map[ksuid.KSUID]*IndexEntry)

	if err := reader.Seek(0); err != nil {
		return err
	}

	it := reader.Iterator()
	defer it.Close()

	for it.Next() {
		e := it.Entry()
		idx.entries[e.ID] = &IndexEntry{
			Offset:    e.Offset,
			Size:      uint32(e.Size),
			Timestamp: uint64(e.Timestamp.UnixNano()),
			Type:      e.Type,
		}
	}
	return it.Err()
}

// Stats returns index statistics
func (idx *HashIndex) Stats() *IndexStats {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	stats := &IndexStats{TotalEntries: len(idx.entries), ByType: make(map[string]int)}
	for _, e := range idx.entries {
		stats.ByType[e.Type]++
	}
	return stats
}

// IndexStats holds statistics about the index
type IndexStats struct {
	TotalEntries int
	ByType       map[string]int
}
