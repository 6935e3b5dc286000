package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ssargent/cstruct/pkg/schema"
	"github.com/ssargent/cstruct/pkg/storage"
	"github.com/ssargent/cstruct/pkg/store"
)

const testLayouts = `
layouts:
  - name: Packet
    fields:
      - {name: tlen, type: uint}
      - {name: text, type: string, length: tlen}
      - {name: flag, type: ubyte, prefix__omit: "hex:01"}
  - name: Pinned
    fields:
      - {name: magic, type: ushort, offset: 16}
`

const testAPIKey = "test-key"

// packetBytes is Packet{text: "Hello World!", flag: 1}.
var packetBytes = append(append([]byte{12, 0, 0, 0}, "Hello World!"...), 1)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	reg, err := schema.Parse([]byte(testLayouts))
	if err != nil {
		t.Fatalf("Failed to parse layouts: %v", err)
	}

	records, err := storage.NewDefaultStorage(filepath.Join(t.TempDir(), "db"), false)
	if err != nil {
		t.Fatalf("Failed to open record store: %v", err)
	}
	t.Cleanup(func() { records.Close() })

	journal, err := store.NewJournal(store.JournalConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	if _, err := journal.Open(); err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { journal.Close() })

	deps := Deps{Layouts: reg, Records: records, Journal: journal}
	return NewServer(deps, ServerConfig{APIKey: testAPIKey}, NewMetrics())
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var response APIResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return response
}

func TestServer_Health(t *testing.T) {
	h := setupTestServer(t).Router()

	w := do(t, h, "GET", "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	response := decodeResponse(t, w)
	if !response.Success {
		t.Error("Expected success to be true")
	}
	data := response.Data.(map[string]interface{})
	if data["layouts"] != float64(2) {
		t.Errorf("Expected 2 layouts, got %v", data["layouts"])
	}
}

func TestServer_Layouts(t *testing.T) {
	h := setupTestServer(t).Router()

	w := do(t, h, "GET", "/api/v1/layouts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"layouts":["Packet","Pinned"]`) {
		t.Errorf("Unexpected layout list: %s", w.Body.String())
	}

	w = do(t, h, "GET", "/api/v1/layouts/Packet", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`"name":"Packet"`, `"length=@tlen"`, `"prefix=0x01 (omit)"`} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %s in %s", want, body)
		}
	}

	w = do(t, h, "GET", "/api/v1/layouts/Nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_Decode(t *testing.T) {
	h := setupTestServer(t).Router()

	tests := []struct {
		name           string
		target         string
		body           []byte
		expectedStatus int
		consumed       string
		contains       string
	}{
		{
			name:           "full packet",
			target:         "/api/v1/layouts/Packet/decode",
			body:           packetBytes,
			expectedStatus: http.StatusOK,
			consumed:       "17",
			contains:       `text: "Hello World!"`,
		},
		{
			name:           "omitted flag",
			target:         "/api/v1/layouts/Packet/decode",
			body:           packetBytes[:16],
			expectedStatus: http.StatusOK,
			consumed:       "16",
			contains:       "flag: null",
		},
		{
			name:           "offset into buffer",
			target:         "/api/v1/layouts/Pinned/decode?offset=16",
			body:           append(make([]byte, 16), 0xBE, 0xBA),
			expectedStatus: http.StatusOK,
			consumed:       "2",
			contains:       "magic: 47806",
		},
		{
			name:           "offset mismatch",
			target:         "/api/v1/layouts/Pinned/decode",
			body:           []byte{0xBE, 0xBA},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "short buffer",
			target:         "/api/v1/layouts/Packet/decode",
			body:           packetBytes[:10],
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "bad offset",
			target:         "/api/v1/layouts/Packet/decode?offset=-1",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown layout",
			target:         "/api/v1/layouts/Nope/decode",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", tt.target, tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			if got := w.Header().Get(HeaderConsumedBytes); got != tt.consumed {
				t.Errorf("Expected %s consumed bytes, got %s", tt.consumed, got)
			}
			if ct := w.Header().Get("Content-Type"); ct != ContentTypeYAML {
				t.Errorf("Expected content type %s, got %s", ContentTypeYAML, ct)
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("Expected %q in %s", tt.contains, w.Body.String())
			}
		})
	}
}

func TestServer_Encode(t *testing.T) {
	h := setupTestServer(t).Router()

	w := do(t, h, "POST", "/api/v1/layouts/Packet/encode", []byte("text: Hello World!\nflag: 1\n"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !bytes.Equal(w.Body.Bytes(), packetBytes) {
		t.Errorf("Expected %x, got %x", packetBytes, w.Body.Bytes())
	}

	w = do(t, h, "POST", "/api/v1/layouts/Pinned/encode?offset=16", []byte("magic: 1\n"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"out of bounds", "/api/v1/layouts/Packet/encode", "flag: 256\n"},
		{"unknown field", "/api/v1/layouts/Packet/encode", "colour: red\n"},
		{"misplaced", "/api/v1/layouts/Pinned/encode", "magic: 1\n"},
		{"bad yaml", "/api/v1/layouts/Packet/encode", "text: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", tt.target, []byte(tt.body))
			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("Expected status 422, got %d: %s", w.Code, w.Body.String())
			}
			if response := decodeResponse(t, w); response.Success || response.Error == "" {
				t.Errorf("Expected an error response, got %+v", response)
			}
		})
	}
}

func TestServer_Records(t *testing.T) {
	h := setupTestServer(t).Router()

	w := do(t, h, "POST", "/api/v1/records/Packet", []byte("text: Hello World!\n"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	id := decodeResponse(t, w).Data.(map[string]interface{})["id"].(string)

	w = do(t, h, "GET", "/api/v1/records/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get(HeaderLayout) != "Packet" {
		t.Errorf("Expected layout header Packet, got %q", w.Header().Get(HeaderLayout))
	}
	if !strings.Contains(w.Body.String(), "tlen: 12") {
		t.Errorf("Unexpected record: %s", w.Body.String())
	}

	w = do(t, h, "GET", "/api/v1/records?type=Packet", nil)
	if !strings.Contains(w.Body.String(), id) {
		t.Errorf("Expected %s in listing %s", id, w.Body.String())
	}

	w = do(t, h, "DELETE", "/api/v1/records/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	w = do(t, h, "GET", "/api/v1/records/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = do(t, h, "GET", "/api/v1/records/not-a-ksuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestServer_Journal(t *testing.T) {
	h := setupTestServer(t).Router()

	w := do(t, h, "POST", "/api/v1/journal/Packet", []byte("text: abc\nflag: 1\n"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	id := decodeResponse(t, w).Data.(map[string]interface{})["id"].(string)

	w = do(t, h, "GET", "/api/v1/journal/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `text: "abc"`) {
		t.Errorf("Unexpected entry: %s", w.Body.String())
	}

	w = do(t, h, "GET", "/api/v1/journal", nil)
	entries := decodeResponse(t, w).Data.(map[string]interface{})["entries"].([]interface{})
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}
}

func TestServer_BackendsNotConfigured(t *testing.T) {
	reg, err := schema.Parse([]byte(testLayouts))
	if err != nil {
		t.Fatalf("Failed to parse layouts: %v", err)
	}
	h := NewServer(Deps{Layouts: reg}, ServerConfig{}, nil).Router()

	for _, target := range []string{"/api/v1/records", "/api/v1/journal"} {
		req := httptest.NewRequest("GET", target, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected status 503, got %d", target, w.Code)
		}
	}
}

func TestServer_Metrics(t *testing.T) {
	h := setupTestServer(t).Router()

	do(t, h, "POST", "/api/v1/layouts/Packet/decode", packetBytes)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	for _, want := range []string{
		`cstruct_codec_operations_total{layout="Packet",operation="decode",status="success"} 1`,
		`cstruct_codec_bytes_total{operation="decode"} 17`,
		`cstruct_auth_requests_total{status="success"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected %s in metrics output", want)
		}
	}
}

func TestServer_BodyTooLarge(t *testing.T) {
	s := setupTestServer(t)
	s.config.MaxBodySize = 4
	h := s.Router()

	w := do(t, h, "POST", "/api/v1/layouts/Packet/decode", packetBytes)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}
