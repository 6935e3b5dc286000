package store

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/cstruct/pkg/codec"
	"github.com/ssargent/cstruct/pkg/layout"
)

// Journal entry format (little-endian):
//
//	+--------+----------+----------------+-----------+--------------+---------+
//	| crc    | id       | type           | timestamp | payload_size | payload |
//	| uint32 | 20 bytes | NUL terminated | uint64    | uint32       | ...     |
//	+--------+----------+----------------+-----------+--------------+---------+
//
// The CRC32 (IEEE) covers every byte after the crc field. The type string
// including its NUL is at most MaxTypeLength bytes.
const (
	MaxTypeLength  = 64
	MaxPayloadSize = 64 << 20

	crcSize     = 4
	idSize      = len(ksuid.KSUID{})
	headSize    = crcSize + idSize
	trailerSize = 8 + 4
)

// Envelope is the layout of a journal entry.
var Envelope = layout.MustDefine("Envelope",
	layout.UIntField("crc"),
	layout.StringField("id", layout.Lit(idSize)),
	layout.NullStringField("type", layout.MaxLength(layout.Lit(MaxTypeLength))),
	layout.ULongField("timestamp"),
	layout.UIntField("payload_size"),
	layout.StringField("payload", layout.Ref("payload_size")),
)

// encodeEntry serialises e and stamps the checksum.
func encodeEntry(e *Entry) ([]byte, error) {
	if bytes.IndexByte([]byte(e.Type), 0) >= 0 {
		return nil, fmt.Errorf("%w: type contains a NUL byte", ErrInvalidEntry)
	}
	if len(e.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrInvalidEntry, len(e.Payload), MaxPayloadSize)
	}
	rec, err := Envelope.New(map[string]layout.Value{
		"id":        layout.Bytes(e.ID.Bytes()),
		"type":      layout.Str(e.Type + "\x00"),
		"timestamp": layout.Int(e.Timestamp.UnixNano()),
		"payload":   layout.Bytes(e.Payload),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	data, err := rec.Encode(0)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}
	sum, err := codec.UInt.AppendInt(nil, int64(crc32.ChecksumIEEE(data[crcSize:])))
	if err != nil {
		return nil, err
	}
	copy(data, sum)
	return data, nil
}

// decodeEntry parses one complete entry and verifies its checksum.
func decodeEntry(data []byte) (*Entry, error) {
	rec, next, err := Envelope.Decode(data, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	if next != len(data) {
		return nil, ErrCorruption
	}

	stored, _ := rec.Int("crc")
	if uint32(stored) != crc32.ChecksumIEEE(data[crcSize:]) {
		return nil, ErrCorruption
	}

	rawID, _ := rec.Bytes("id")
	id, err := ksuid.FromBytes(rawID)
	if err != nil {
		return nil, ErrCorruption
	}
	typ, _ := rec.Bytes("type")
	ts, _ := rec.Int("timestamp")
	payload, _ := rec.Bytes("payload")

	return &Entry{
		ID:        id,
		Type:      string(bytes.TrimSuffix(typ, []byte{0})),
		Timestamp: time.Unix(0, ts),
		Payload:   payload,
		Size:      len(data),
	}, nil
}
