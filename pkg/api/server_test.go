package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServerConfig_Addr(t *testing.T) {
	tests := []struct {
		config   ServerConfig
		expected string
	}{
		{ServerConfig{Bind: "127.0.0.1", Port: 8080}, "127.0.0.1:8080"},
		{ServerConfig{Port: 9000}, ":9000"},
		{ServerConfig{Bind: "::1", Port: 80}, "[::1]:80"},
	}
	for _, tt := range tests {
		if got := tt.config.Addr(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

func TestNewServer_Defaults(t *testing.T) {
	s := NewServer(Deps{}, ServerConfig{}, nil)
	if s.metrics == nil {
		t.Error("Expected metrics to be created")
	}
	if s.config.MaxBodySize != defaultMaxBodySize {
		t.Errorf("Expected default body size, got %d", s.config.MaxBodySize)
	}
	if s.deps.Logger == nil {
		t.Error("Expected a logger")
	}
}

func TestStartServer_Shutdown(t *testing.T) {
	s := setupTestServer(t)
	config := ServerConfig{Bind: "127.0.0.1", Port: freePort(t), APIKey: testAPIKey}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartServer(ctx, s, config) }()

	url := fmt.Sprintf("http://%s/metrics", config.Addr())
	var lastErr error
	for i := 0; i < 50; i++ {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			lastErr = nil
			break
		}
		lastErr = err
		time.Sleep(20 * time.Millisecond)
	}
	if lastErr != nil {
		t.Fatalf("Server never came up: %v", lastErr)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shut down")
	}
}

func TestStartServer_ListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer l.Close()

	config := ServerConfig{Bind: "127.0.0.1", Port: l.Addr().(*net.TCPAddr).Port}
	s := NewServer(Deps{}, config, nil)
	if err := StartServer(context.Background(), s, config); err == nil {
		t.Error("Expected an error for a port in use")
	}
}

func TestServer_Swagger(t *testing.T) {
	h := NewServer(Deps{}, ServerConfig{APIKey: "secret"}, nil).Router()

	req, _ := http.NewRequest("GET", "/swagger/swagger.json", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Swagger doc is not valid JSON: %v", err)
	}
	if doc["basePath"] != "/api/v1" {
		t.Errorf("Expected basePath /api/v1, got %v", doc["basePath"])
	}
	paths := doc["paths"].(map[string]interface{})
	if _, ok := paths["/layouts/{name}/decode"]; !ok {
		t.Error("Expected the decode route to be documented")
	}

	req, _ = http.NewRequest("GET", "/swagger/", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), "swagger-ui") {
		t.Error("Expected the swagger UI page")
	}
}
