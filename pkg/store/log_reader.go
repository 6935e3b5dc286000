package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ssargent/cstruct/pkg/codec"
)

// LogReader provides sequential access to entries in a journal file
type LogReader struct {
	file   *os.File
	reader *bufio.Reader
	offset int64
	config LogReaderConfig
}

// NewLogReader creates a new log reader for the specified file
func NewLogReader(config LogReaderConfig) (*LogReader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
	}

	return &LogReader{
		file:   file,
		reader: bufio.NewReader(file),
		offset: config.StartOffset,
		config: config,
	}, nil
}

// ReadNext reads the entry at the current offset. It returns io.EOF at a
// clean end of file and ErrCorruption for a truncated or damaged entry.
func (r *LogReader) ReadNext() (*Entry, error) {
	start := r.offset
	data, err := readEntryBytes(r.reader)
	r.offset += int64(len(data))
	if err != nil {
		return nil, err
	}
	entry, err := decodeEntry(data)
	if err != nil {
		return nil, err
	}
	entry.Offset = start
	return entry, nil
}

// ReadAt reads the entry at a specific offset without moving the
// sequential cursor. The file is reopened so appends made since the
// reader was created are visible.
func (r *LogReader) ReadAt(offset int64) (*Entry, error) {
	file, err := os.Open(r.config.FilePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	data, err := readEntryBytes(bufio.NewReader(file))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}
	entry, err := decodeEntry(data)
	if err != nil {
		return nil, err
	}
	entry.Offset = offset
	return entry, nil
}

// readEntryBytes reads exactly one encoded entry. The returned slice holds
// whatever was consumed, even on error.
func readEntryBytes(rd *bufio.Reader) ([]byte, error) {
	data := make([]byte, headSize, headSize+MaxTypeLength+trailerSize)
	n, err := io.ReadFull(rd, data)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return data[:n], ErrCorruption
	}

	// type: up to and including the NUL, capped at MaxTypeLength
	for i := 0; ; i++ {
		if i == MaxTypeLength {
			return data, ErrCorruption
		}
		b, err := rd.ReadByte()
		if err != nil {
			return data, ErrCorruption
		}
		data = append(data, b)
		if b == 0 {
			break
		}
	}

	trailer := make([]byte, trailerSize)
	n, err = io.ReadFull(rd, trailer)
	data = append(data, trailer[:n]...)
	if err != nil {
		return data, ErrCorruption
	}

	size, err := codec.UInt.Int(trailer, 8)
	if err != nil {
		return data, ErrCorruption
	}
	if size > MaxPayloadSize {
		return data, fmt.Errorf("%w: payload size %d", ErrCorruption, size)
	}

	payload := make([]byte, size)
	n, err = io.ReadFull(rd, payload)
	data = append(data, payload[:n]...)
	if err != nil {
		return data, ErrCorruption
	}
	return data, nil
}

// Seek sets the read offset
func (r *LogReader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	r.reader = bufio.NewReader(r.file) // Recreate reader to clear buffer
	r.offset = offset
	return nil
}

// Offset returns the current read offset
func (r *LogReader) Offset() int64 {
	return r.offset
}

// Iterator returns a streaming iterator over the remaining entries
func (r *LogReader) Iterator() EntryIterator {
	return &logEntryIterator{reader: r}
}

// Close closes the log reader
func (r *LogReader) Close() error {
	return r.file.Close()
}

type logEntryIterator struct {
	reader *LogReader
	entry  *Entry
	err    error
}

func (it *logEntryIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.entry, it.err = it.reader.ReadNext()
	return it.err == nil
}

func (it *logEntryIterator) Entry() *Entry {
	return it.entry
}

// Err returns the error that stopped iteration, nil at a clean end.
func (it *logEntryIterator) Err() error {
	if errors.Is(it.err, io.EOF) {
		return nil
	}
	return it.err
}

func (it *logEntryIterator) Close() error {
	// The reader is owned by the caller
	return nil
}
