package api

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/cstruct/pkg/layout"
	"github.com/ssargent/cstruct/pkg/storage"
	"github.com/ssargent/cstruct/pkg/store"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port            int
	Bind            string
	APIKey          string // Empty disables authentication
	MaxBodySize     int64
	ShutdownTimeout time.Duration
}

// EntryInfo describes a journal entry without its payload
type EntryInfo struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Offset    int64     `json:"offset"`
	Size      int       `json:"size"`
}

// ItemInfo describes a stored record without its body
type ItemInfo struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

// Catalog resolves layout names
type Catalog interface {
	Names() []string
	Lookup(name string) (*layout.Definition, error)
}

// RecordStore keeps encoded records by id
type RecordStore interface {
	Put(typ string, body []byte) (ksuid.KSUID, error)
	Get(id ksuid.KSUID) (*storage.Item, error)
	Delete(id ksuid.KSUID) error
	List(typ string) ([]*storage.Item, error)
}

// EntryJournal appends encoded records to a journal
type EntryJournal interface {
	Append(typ string, payload []byte) (*store.Entry, error)
	Get(id ksuid.KSUID) (*store.Entry, error)
	Entries(typ string) ([]*store.Entry, error)
}

// Deps are the backends a server works against. Records and Journal may
// be nil, in which case their routes answer 503.
type Deps struct {
	Layouts Catalog
	Records RecordStore
	Journal EntryJournal
	Logger  *log.Logger
}
