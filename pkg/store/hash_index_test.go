package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIndex_PutGetDelete(t *testing.T) {
	idx := NewHashIndex()
	assert.Equal(t, 0, idx.Size())

	id := ksuid.New()
	entry := &IndexEntry{Offset: 100, Size: 50, Timestamp: 1234567890, Type: "Point"}
	idx.Put(id, entry)

	got, ok := idx.Get(id)
	require.True(t, ok)
	assert.Equal(t, entry, got)

	_, ok = idx.Get(ksuid.New())
	assert.False(t, ok)

	idx.Delete(id)
	_, ok = idx.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Size())
}

func TestHashIndex_IDsInJournalOrder(t *testing.T) {
	idx := NewHashIndex()
	ids := []ksuid.KSUID{ksuid.New(), ksuid.New(), ksuid.New()}
	idx.Put(ids[2], &IndexEntry{Offset: 200, Type: "b"})
	idx.Put(ids[0], &IndexEntry{Offset: 0, Type: "a"})
	idx.Put(ids[1], &IndexEntry{Offset: 100, Type: "b"})

	assert.Equal(t, ids, idx.IDs())
	assert.Equal(t, []ksuid.KSUID{ids[1], ids[2]}, idx.IDsOfType("b"))

	stats := idx.Stats()
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, stats.ByType)

	idx.Clear()
	assert.Empty(t, idx.IDs())
}

func TestHashIndex_BuildFromLog(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "test.log")
	written := writeEntries(t, filePath, "a", "b", "a")

	reader, err := NewLogReader(LogReaderConfig{FilePath: filePath})
	require.NoError(t, err)
	defer reader.Close()

	idx := NewHashIndex()
	require.NoError(t, idx.BuildFromLog(reader))
	assert.Equal(t, 3, idx.Size())

	for _, e := range written {
		loc, ok := idx.Get(e.ID)
		require.True(t, ok)
		assert.Equal(t, e.Offset, loc.Offset)
		assert.Equal(t, uint32(e.Size), loc.Size)
		assert.Equal(t, e.Type, loc.Type)
	}
}

func TestHashIndex_ConcurrentAccess(t *testing.T) {
	idx := NewHashIndex()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := ksuid.New()
				idx.Put(id, &IndexEntry{Offset: int64(n*100 + j), Type: fmt.Sprint(n)})
				_, _ = idx.Get(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, idx.Size())
}
