package store

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/segmentio/ksuid"
)

// Entry is one journal record. Payload holds the bytes of a record encoded
// with the layout named by Type.
type Entry struct {
	ID        ksuid.KSUID
	Type      string
	Timestamp time.Time
	Payload   []byte
	Offset    int64 // Position of the entry in the journal file
	Size      int   // Encoded size in bytes
}

// IndexEntry represents the location of an entry in the journal
type IndexEntry struct {
	Offset    int64  // Byte offset within the file
	Size      uint32 // Size of the entry in bytes
	Timestamp uint64 // Entry timestamp in unix nanoseconds
	Type      string
}

// LogWriterConfig holds configuration for the log writer
type LogWriterConfig struct {
	FilePath      string        // Path to the journal file
	FsyncInterval time.Duration // How often to fsync (0 = every write)
	BufferSize    int           // Write buffer size
	Logger        *log.Logger
}

// LogReaderConfig holds configuration for the log reader
type LogReaderConfig struct {
	FilePath    string // Path to the journal file
	StartOffset int64  // Offset to start reading from
}

// JournalConfig holds configuration for a journal
type JournalConfig struct {
	DataDir       string        // Directory holding the journal file
	FsyncInterval time.Duration // Fsync interval for durability
	Logger        *log.Logger
}

// EntryIterator provides streaming access to entries
type EntryIterator interface {
	Next() bool
	Entry() *Entry
	Err() error
	Close() error
}

// Errors
var (
	ErrEntryNotFound = &JournalError{"entry not found"}
	ErrInvalidEntry  = &JournalError{"invalid entry"}
	ErrCorruption    = &JournalError{"data corruption detected"}
	ErrClosed        = &JournalError{"journal is not open"}
)

// JournalError represents a journal error
type JournalError struct {
	Message string
}

func (e *JournalError) Error() string {
	return e.Message
}
