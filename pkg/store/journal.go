package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/segmentio/ksuid"
)

// JournalFile is the name of the journal inside the data directory.
const JournalFile = "journal.data"

// Journal is an append-only log of typed entries with an in-memory id
// index.
type Journal struct {
	config   JournalConfig
	writer   *LogWriter
	reader   *LogReader
	index    *HashIndex
	logger   *log.Logger
	dataFile string
	mutex    sync.Mutex
	isOpen   bool
}

// RecoveryResult reports what Open found in the journal file
type RecoveryResult struct {
	EntriesValidated int64
	EntriesTruncated int64
	FileSizeBefore   int64
	FileSizeAfter    int64
	RecoveryTime     time.Duration
}

// NewJournal creates a journal in config.DataDir. Call Open before use.
func NewJournal(config JournalConfig) (*Journal, error) {
	if err := os.MkdirAll(config.DataDir, 0750); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Journal{
		config:   config,
		dataFile: filepath.Join(config.DataDir, JournalFile),
		index:    NewHashIndex(),
		logger:   logger,
	}, nil
}

// Open validates the journal, truncating a damaged tail, and builds the
// index.
func (j *Journal) Open() (*RecoveryResult, error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if j.isOpen {
		return &RecoveryResult{}, nil
	}

	result, err := validateLogFile(j.dataFile)
	if err != nil {
		return nil, err
	}
	if result.EntriesTruncated > 0 {
		j.logger.Warn("truncated damaged journal tail",
			"path", j.dataFile, "before", result.FileSizeBefore, "after", result.FileSizeAfter)
	}

	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:      j.dataFile,
		FsyncInterval: j.config.FsyncInterval,
		BufferSize:    64 * 1024,
		Logger:        j.logger,
	})
	if err != nil {
		return nil, err
	}

	reader, err := NewLogReader(LogReaderConfig{FilePath: j.dataFile})
	if err != nil {
		writer.Close()
		return nil, err
	}

	if err := j.index.BuildFromLog(reader); err != nil {
		reader.Close()
		writer.Close()
		return nil, err
	}

	j.writer = writer
	j.reader = reader
	j.isOpen = true
	j.logger.Info("journal opened", "path", j.dataFile, "entries", j.index.Size())
	return result, nil
}

// Append writes a payload of the given type and indexes it.
func (j *Journal) Append(typ string, payload []byte) (*Entry, error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if !j.isOpen {
		return nil, ErrClosed
	}
	e, err := j.writer.Append(typ, payload)
	if err != nil {
		return nil, err
	}
	// Reads reopen the file, so the entry must be on disk first.
	if err := j.writer.Sync(); err != nil {
		return nil, err
	}
	j.index.Put(e.ID, &IndexEntry{
		Offset:    e.Offset,
		Size:      uint32(e.Size),
		Timestamp: uint64(e.Timestamp.UnixNano()),
		Type:      e.Type,
	})
	return e, nil
}

// Get returns the entry with the given id.
func (j *Journal) Get(id ksuid.KSUID) (*Entry, error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if !j.isOpen {
		return nil, ErrClosed
	}
	loc, ok := j.index.Get(id)
	if !ok {
		return nil, ErrEntryNotFound
	}
	return j.reader.ReadAt(loc.Offset)
}

// Entries returns every entry in journal order. A non-empty typ keeps only
// entries of that type.
func (j *Journal) Entries(typ string) ([]*Entry, error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if !j.isOpen {
		return nil, ErrClosed
	}
	ids := j.index.IDs()
	if typ != "" {
		ids = j.index.IDsOfType(typ)
	}
	out := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		loc, _ := j.index.Get(id)
		e, err := j.reader.ReadAt(loc.Offset)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Stats returns index statistics.
func (j *Journal) Stats() *IndexStats {
	return j.index.Stats()
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.dataFile
}

// Close flushes and closes the journal.
func (j *Journal) Close() error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if !j.isOpen {
		return nil
	}
	j.isOpen = false

	if err := j.writer.Close(); err != nil {
		j.reader.Close()
		return err
	}
	return j.reader.Close()
}

// validateLogFile reads entries until the first damaged one and truncates
// the file there.
func validateLogFile(filePath string) (*RecoveryResult, error) {
	start := time.Now()

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RecoveryResult{RecoveryTime: time.Since(start)}, nil
		}
		return nil, err
	}

	reader, err := NewLogReader(LogReaderConfig{FilePath: filePath})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := &RecoveryResult{FileSizeBefore: info.Size(), FileSizeAfter: info.Size()}
	var lastValid int64
	for {
		_, err := reader.ReadNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !errors.Is(err, ErrCorruption) {
				return nil, err
			}
			if err := os.Truncate(filePath, lastValid); err != nil {
				return nil, err
			}
			result.FileSizeAfter = lastValid
			result.EntriesTruncated = 1
			break
		}
		result.EntriesValidated++
		lastValid = reader.Offset()
	}

	result.RecoveryTime = time.Since(start)
	return result, nil
}
