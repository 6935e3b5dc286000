package store

import (
	"os"
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openJournal(t *testing.T, dir string) *Journal {
	t.Helper()
	j, err := NewJournal(JournalConfig{DataDir: dir})
	require.NoError(t, err)
	_, err = j.Open()
	require.NoError(t, err)
	return j
}

func TestJournal_AppendAndGet(t *testing.T) {
	j := openJournal(t, t.TempDir())
	defer j.Close()

	a, err := j.Append("Point", []byte{1, 0, 2, 0})
	require.NoError(t, err)
	b, err := j.Append("Packet", []byte("Hello"))
	require.NoError(t, err)

	got, err := j.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 2, 0}, got.Payload)

	got, err = j.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Packet", got.Type)

	_, err = j.Get(ksuid.New())
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestJournal_Entries(t *testing.T) {
	j := openJournal(t, t.TempDir())
	defer j.Close()

	for _, typ := range []string{"a", "b", "a"} {
		_, err := j.Append(typ, []byte(typ))
		require.NoError(t, err)
	}

	all, err := j.Entries("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[1].Type)

	onlyA, err := j.Entries("a")
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	assert.Equal(t, 2, j.Stats().ByType["a"])
}

func TestJournal_Reopen(t *testing.T) {
	dir := t.TempDir()
	j := openJournal(t, dir)
	e, err := j.Append("Point", []byte{9})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j = openJournal(t, dir)
	defer j.Close()

	got, err := j.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, got.Payload)
}

func TestJournal_Closed(t *testing.T) {
	j, err := NewJournal(JournalConfig{DataDir: t.TempDir()})
	require.NoError(t, err)

	_, err = j.Append("a", nil)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = j.Get(ksuid.New())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, j.Close())
}

func TestJournal_RecoversTruncatedTail(t *testing.T) {
	dir := t.TempDir()
	j := openJournal(t, dir)
	first, err := j.Append("a", []byte("first"))
	require.NoError(t, err)
	second, err := j.Append("b", []byte("second"))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	// Simulate a torn write of the second entry.
	require.NoError(t, os.Truncate(j.Path(), second.Offset+int64(second.Size)-3))

	j, err = NewJournal(JournalConfig{DataDir: dir})
	require.NoError(t, err)
	result, err := j.Open()
	require.NoError(t, err)
	defer j.Close()

	assert.Equal(t, int64(1), result.EntriesValidated)
	assert.Equal(t, int64(1), result.EntriesTruncated)
	assert.Equal(t, second.Offset, result.FileSizeAfter)

	_, err = j.Get(first.ID)
	assert.NoError(t, err)
	_, err = j.Get(second.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	// Appends continue from the truncated end.
	third, err := j.Append("c", nil)
	require.NoError(t, err)
	assert.Equal(t, second.Offset, third.Offset)
}
