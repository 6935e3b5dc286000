package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/cstruct/pkg/layout"
	"github.com/ssargent/cstruct/pkg/schema"
	"github.com/ssargent/cstruct/pkg/storage"
	"github.com/ssargent/cstruct/pkg/store"
)

// Response headers
const (
	HeaderConsumedBytes = "X-Consumed-Bytes"
	HeaderLayout        = "X-Layout"

	ContentTypeYAML   = "application/yaml"
	ContentTypeBinary = "application/octet-stream"
)

// statusFor maps a failure to the status code reported to the client.
func statusFor(err error) int {
	var (
		decodeErr     *layout.DecodeError
		valueErr      *layout.ValueError
		packErr       *layout.PackError
		unresolvedErr *layout.UnresolvedFieldsError
	)
	switch {
	case errors.Is(err, schema.ErrUnknownLayout),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, store.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.As(err, &decodeErr),
		errors.As(err, &valueErr),
		errors.As(err, &packErr),
		errors.As(err, &unresolvedErr),
		errors.Is(err, schema.ErrInvalidField):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.deps.Logger.Error(msg, "path", r.URL.Path, "err", err)
	} else {
		s.deps.Logger.Debug(msg, "path", r.URL.Path, "err", err)
	}
	sendError(w, fmt.Sprintf("%s: %v", msg, err), status)
}

// offsetParam reads the optional ?offset= query value.
func offsetParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("offset")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("offset must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func writeYAML(w http.ResponseWriter, rec *layout.Record) error {
	out, err := schema.Marshal(rec)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", ContentTypeYAML)
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(out)
	return err
}

// encodeBody builds a record of the named layout from a YAML body.
func (s *Server) encodeBody(name string, body []byte, base int) ([]byte, error) {
	def, err := s.deps.Layouts.Lookup(name)
	if err != nil {
		return nil, err
	}
	rec, err := schema.UnmarshalRecord(def, body)
	if err != nil {
		s.metrics.RecordCodecOperation(name, "encode", false, 0)
		return nil, err
	}
	data, err := rec.Encode(base)
	s.metrics.RecordCodecOperation(name, "encode", err == nil, len(data))
	return data, err
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]interface{}{
		"status":  "healthy",
		"layouts": len(s.deps.Layouts.Names()),
	})
}

// handleListLayouts godoc
//
//	@Summary		List layouts
//	@Tags			layouts
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/layouts [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]interface{}{"layouts": s.deps.Layouts.Names()})
}

// handleGetLayout godoc
//
//	@Summary		Describe a layout
//	@Tags			layouts
//	@Produce		json
//	@Param			name	path		string	true	"Layout name"
//	@Success		200		{object}	schema.LayoutInfo
//	@Failure		404		{object}	APIResponse
//	@Router			/layouts/{name} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	def, err := s.deps.Layouts.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, "Failed to find layout", err)
		return
	}
	sendSuccess(w, schema.Describe(def))
}

// handleDecode godoc
//
//	@Summary		Decode bytes
//	@Description	Decode the request body as a record of the layout starting at ?offset
//	@Tags			layouts
//	@Accept			octet-stream
//	@Produce		application/yaml
//	@Param			name	path		string	true	"Layout name"
//	@Param			offset	query		int		false	"Start offset"
//	@Success		200		{string}	string
//	@Failure		422		{object}	APIResponse
//	@Router			/layouts/{name}/decode [post]
//	@Security		ApiKeyAuth
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	def, err := s.deps.Layouts.Lookup(name)
	if err != nil {
		s.fail(w, r, "Failed to find layout", err)
		return
	}
	base, err := offsetParam(r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	rec, next, err := def.Decode(body, base)
	s.metrics.RecordCodecOperation(name, "decode", err == nil, next-base)
	if err != nil {
		s.fail(w, r, "Failed to decode", err)
		return
	}

	w.Header().Set(HeaderConsumedBytes, strconv.Itoa(next-base))
	if err := writeYAML(w, rec); err != nil {
		s.deps.Logger.Error("failed to write response", "err", err)
	}
}

// handleEncode godoc
//
//	@Summary		Encode values
//	@Description	Encode YAML field values as a record of the layout placed at ?offset
//	@Tags			layouts
//	@Accept			application/yaml
//	@Produce		octet-stream
//	@Param			name	path		string	true	"Layout name"
//	@Param			offset	query		int		false	"Base offset"
//	@Success		200		{string}	byte
//	@Failure		422		{object}	APIResponse
//	@Router			/layouts/{name}/encode [post]
//	@Security		ApiKeyAuth
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	base, err := offsetParam(r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	data, err := s.encodeBody(chi.URLParam(r, "name"), body, base)
	if err != nil {
		s.fail(w, r, "Failed to encode", err)
		return
	}

	w.Header().Set("Content-Type", ContentTypeBinary)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) parseID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid id", http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

// decodeStored decodes a stored body and writes it as YAML.
func (s *Server) decodeStored(w http.ResponseWriter, r *http.Request, typ string, body []byte) {
	def, err := s.deps.Layouts.Lookup(typ)
	if err != nil {
		s.fail(w, r, "Failed to find layout of stored record", err)
		return
	}
	rec, next, err := def.Decode(body, 0)
	s.metrics.RecordCodecOperation(typ, "decode", err == nil, next)
	if err != nil {
		s.fail(w, r, "Failed to decode stored record", err)
		return
	}
	w.Header().Set(HeaderLayout, typ)
	if err := writeYAML(w, rec); err != nil {
		s.deps.Logger.Error("failed to write response", "err", err)
	}
}

// handlePutRecord godoc
//
//	@Summary		Store a record
//	@Tags			records
//	@Accept			application/yaml
//	@Produce		json
//	@Param			layout	path		string	true	"Layout name"
//	@Success		200		{object}	ItemInfo
//	@Router			/records/{layout} [post]
//	@Security		ApiKeyAuth
func (s *Server) handlePutRecord(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		sendError(w, "Record store not configured", http.StatusServiceUnavailable)
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "layout")
	data, err := s.encodeBody(name, body, 0)
	if err != nil {
		s.fail(w, r, "Failed to encode", err)
		return
	}

	start := time.Now()
	id, err := s.deps.Records.Put(name, data)
	s.metrics.RecordBackendOperation("records", "put", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to store record", err)
		return
	}
	sendSuccess(w, ItemInfo{ID: id.String(), Type: name, Size: len(data)})
}

// handleGetRecord godoc
//
//	@Summary		Fetch a stored record
//	@Tags			records
//	@Produce		application/yaml
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{string}	string
//	@Failure		404	{object}	APIResponse
//	@Router			/records/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		sendError(w, "Record store not configured", http.StatusServiceUnavailable)
		return
	}
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	start := time.Now()
	item, err := s.deps.Records.Get(id)
	s.metrics.RecordBackendOperation("records", "get", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to get record", err)
		return
	}
	s.decodeStored(w, r, item.Type, item.Body)
}

// handleDeleteRecord godoc
//
//	@Summary		Delete a stored record
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	map[string]string
//	@Router			/records/{id} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		sendError(w, "Record store not configured", http.StatusServiceUnavailable)
		return
	}
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	start := time.Now()
	err := s.deps.Records.Delete(id)
	s.metrics.RecordBackendOperation("records", "delete", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to delete record", err)
		return
	}
	sendSuccess(w, map[string]string{"message": "Record deleted successfully"})
}

// handleListRecords godoc
//
//	@Summary		List stored records
//	@Tags			records
//	@Produce		json
//	@Param			type	query		string	false	"Layout name filter"
//	@Success		200		{object}	APIResponse
//	@Router			/records [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		sendError(w, "Record store not configured", http.StatusServiceUnavailable)
		return
	}
	start := time.Now()
	items, err := s.deps.Records.List(r.URL.Query().Get("type"))
	s.metrics.RecordBackendOperation("records", "list", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to list records", err)
		return
	}
	out := make([]ItemInfo, 0, len(items))
	for _, item := range items {
		out = append(out, ItemInfo{ID: item.ID.String(), Type: item.Type, Size: len(item.Body)})
	}
	sendSuccess(w, map[string]interface{}{"records": out})
}

// handleAppendEntry godoc
//
//	@Summary		Append a journal entry
//	@Tags			journal
//	@Accept			application/yaml
//	@Produce		json
//	@Param			layout	path		string	true	"Layout name"
//	@Success		200		{object}	EntryInfo
//	@Router			/journal/{layout} [post]
//	@Security		ApiKeyAuth
func (s *Server) handleAppendEntry(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		sendError(w, "Journal not configured", http.StatusServiceUnavailable)
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "layout")
	data, err := s.encodeBody(name, body, 0)
	if err != nil {
		s.fail(w, r, "Failed to encode", err)
		return
	}

	start := time.Now()
	e, err := s.deps.Journal.Append(name, data)
	s.metrics.RecordBackendOperation("journal", "append", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to append entry", err)
		return
	}
	sendSuccess(w, entryInfo(e))
}

// handleGetEntry godoc
//
//	@Summary		Fetch a journal entry
//	@Tags			journal
//	@Produce		application/yaml
//	@Param			id	path		string	true	"Entry id"
//	@Success		200	{string}	string
//	@Failure		404	{object}	APIResponse
//	@Router			/journal/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		sendError(w, "Journal not configured", http.StatusServiceUnavailable)
		return
	}
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	start := time.Now()
	e, err := s.deps.Journal.Get(id)
	s.metrics.RecordBackendOperation("journal", "get", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to get entry", err)
		return
	}
	s.decodeStored(w, r, e.Type, e.Payload)
}

// handleListEntries godoc
//
//	@Summary		List journal entries
//	@Tags			journal
//	@Produce		json
//	@Param			type	query		string	false	"Layout name filter"
//	@Success		200		{object}	APIResponse
//	@Router			/journal [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		sendError(w, "Journal not configured", http.StatusServiceUnavailable)
		return
	}
	start := time.Now()
	entries, err := s.deps.Journal.Entries(r.URL.Query().Get("type"))
	s.metrics.RecordBackendOperation("journal", "list", err == nil, time.Since(start))
	if err != nil {
		s.fail(w, r, "Failed to list entries", err)
		return
	}
	out := make([]EntryInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryInfo(e))
	}
	sendSuccess(w, map[string]interface{}{"entries": out})
}

func entryInfo(e *store.Entry) EntryInfo {
	return EntryInfo{
		ID:        e.ID.String(),
		Type:      e.Type,
		Timestamp: e.Timestamp,
		Offset:    e.Offset,
		Size:      e.Size,
	}
}
