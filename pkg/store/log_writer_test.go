package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogWriter(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "test.log")

	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:   filePath,
		BufferSize: 4096,
	})
	require.NoError(t, err)
	assert.NotNil(t, writer)

	assert.FileExists(t, filePath)
	assert.Equal(t, int64(0), writer.Size())
	assert.Equal(t, filePath, writer.Path())

	assert.NoError(t, writer.Close())
}

func TestNewLogWriter_DirectoryCreation(t *testing.T) {
	nestedDir := filepath.Join(t.TempDir(), "nested", "deep", "path")

	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:   filepath.Join(nestedDir, "test.log"),
		BufferSize: 4096,
	})
	require.NoError(t, err)
	defer writer.Close()

	assert.DirExists(t, nestedDir)
}

func TestNewLogWriter_InvalidPath(t *testing.T) {
	writer, err := NewLogWriter(LogWriterConfig{
		FilePath: "/invalid/path/that/cannot/be/created/test.log",
	})
	assert.Error(t, err)
	assert.Nil(t, writer)
}

func TestLogWriter_Append(t *testing.T) {
	writer, err := NewLogWriter(LogWriterConfig{FilePath: filepath.Join(t.TempDir(), "test.log")})
	require.NoError(t, err)
	defer writer.Close()

	types := []string{"Point", "Packet", "Point"}
	var offsets []int64
	for _, typ := range types {
		e, err := writer.Append(typ, []byte("payload"))
		require.NoError(t, err)
		assert.False(t, e.ID.IsNil())
		assert.Equal(t, typ, e.Type)
		offsets = append(offsets, e.Offset)
	}

	assert.Equal(t, int64(0), offsets[0])
	assert.Greater(t, offsets[1], offsets[0])
	assert.Greater(t, offsets[2], offsets[1])

	info, err := os.Stat(writer.Path())
	require.NoError(t, err)
	assert.Equal(t, writer.Size(), info.Size())
}

func TestLogWriter_Reopen(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "test.log")

	writer, err := NewLogWriter(LogWriterConfig{FilePath: filePath})
	require.NoError(t, err)
	_, err = writer.Append("Point", []byte{1, 2})
	require.NoError(t, err)
	size := writer.Size()
	require.NoError(t, writer.Close())

	writer, err = NewLogWriter(LogWriterConfig{FilePath: filePath})
	require.NoError(t, err)
	defer writer.Close()
	assert.Equal(t, size, writer.Size())

	e, err := writer.Append("Point", []byte{3, 4})
	require.NoError(t, err)
	assert.Equal(t, size, e.Offset)
}

func TestLogWriter_InvalidEntry(t *testing.T) {
	writer, err := NewLogWriter(LogWriterConfig{FilePath: filepath.Join(t.TempDir(), "test.log")})
	require.NoError(t, err)
	defer writer.Close()

	_, err = writer.Append("a\x00b", nil)
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Equal(t, int64(0), writer.Size())
}

func TestLogWriter_FsyncInterval(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "test.log")

	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:      filePath,
		FsyncInterval: 10 * time.Millisecond,
		BufferSize:    4096,
	})
	require.NoError(t, err)
	defer writer.Close()

	_, err = writer.Append("Point", []byte("value"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		info, err := os.Stat(filePath)
		return err == nil && info.Size() == writer.Size()
	}, time.Second, 10*time.Millisecond)
}

func TestLogWriter_Sync(t *testing.T) {
	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:      filepath.Join(t.TempDir(), "test.log"),
		FsyncInterval: time.Hour,
	})
	require.NoError(t, err)
	defer writer.Close()

	_, err = writer.Append("Point", []byte("value"))
	require.NoError(t, err)
	assert.NoError(t, writer.Sync())
}
