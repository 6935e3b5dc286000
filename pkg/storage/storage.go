package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/cstruct/pkg/layout"
)

// ErrNotFound is returned when no record is stored under an id.
var ErrNotFound = errors.New("storage: record not found")

// Stored is the layout of a stored value: the name of the layout the body
// was encoded with, then the body itself filling the rest of the value.
var Stored = layout.MustDefine("Stored",
	layout.NullStringField("type", layout.MaxLength(layout.Lit(64))),
	layout.StringField("body", layout.Lit(-1)),
)

// Item is a stored body tagged with its layout name.
type Item struct {
	ID   ksuid.KSUID
	Type string
	Body []byte
}

// DefaultStorage keeps encoded records in a pebble database keyed by KSUID.
type DefaultStorage struct {
	db   *pebble.DB
	sync bool
}

// NewDefaultStorage opens (or creates) the database at path. With sync set
// every write is fsynced.
func NewDefaultStorage(path string, sync bool) (*DefaultStorage, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &DefaultStorage{db: db, sync: sync}, nil
}

func (s *DefaultStorage) writeOpts() *pebble.WriteOptions {
	if s.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// Put stores body under a new id.
func (s *DefaultStorage) Put(typ string, body []byte) (ksuid.KSUID, error) {
	id := ksuid.New()
	if err := s.Update(id, typ, body); err != nil {
		return ksuid.Nil, err
	}
	return id, nil
}

// Update replaces the value stored under id.
func (s *DefaultStorage) Update(id ksuid.KSUID, typ string, body []byte) error {
	value, err := encodeValue(typ, body)
	if err != nil {
		return err
	}
	return s.db.Set(id.Bytes(), value, s.writeOpts())
}

// Get returns the item stored under id.
func (s *DefaultStorage) Get(id ksuid.KSUID) (*Item, error) {
	data, closer, err := s.db.Get(id.Bytes())
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	defer closer.Close()

	return decodeValue(id, data)
}

// List returns every stored item in id order. A non-empty typ keeps only
// items of that layout.
func (s *DefaultStorage) List(typ string) ([]*Item, error) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*Item
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key())
		if err != nil {
			return nil, fmt.Errorf("bad key %x: %w", iter.Key(), err)
		}
		item, err := decodeValue(id, iter.Value())
		if err != nil {
			return nil, err
		}
		if typ == "" || item.Type == typ {
			out = append(out, item)
		}
	}
	return out, iter.Error()
}

// Delete removes the value stored under id. Deleting a missing id is not
// an error.
func (s *DefaultStorage) Delete(id ksuid.KSUID) error {
	return s.db.Delete(id.Bytes(), s.writeOpts())
}

// Close closes the database.
func (s *DefaultStorage) Close() error {
	return s.db.Close()
}

func encodeValue(typ string, body []byte) ([]byte, error) {
	rec, err := Stored.New(map[string]layout.Value{
		"type": layout.Str(typ + "\x00"),
		"body": layout.Bytes(body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build value: %w", err)
	}
	return rec.Encode(0)
}

// decodeValue copies out of data, which pebble owns.
func decodeValue(id ksuid.KSUID, data []byte) (*Item, error) {
	rec, _, err := Stored.Decode(data, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to decode value of %s: %w", id, err)
	}
	typ, _ := rec.Bytes("type")
	body, _ := rec.Bytes("body")
	return &Item{
		ID:   id,
		Type: string(bytes.TrimSuffix(typ, []byte{0})),
		Body: body,
	}, nil
}
