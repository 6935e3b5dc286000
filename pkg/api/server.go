// Package api cstruct REST API
//
// @title           cstruct REST API
// @version         1.0.0
// @description     Encode and decode binary records against named layouts.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag"

	"github.com/ssargent/cstruct/pkg/logging"
)

const (
	defaultMaxBodySize     = 16 << 20
	defaultShutdownTimeout = 10 * time.Second
)

// Server holds the API server state
type Server struct {
	deps    Deps
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server
func NewServer(deps Deps, config ServerConfig, metrics *Metrics) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = defaultMaxBodySize
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Server{deps: deps, config: config, metrics: metrics}
}

// Router builds the HTTP handler with all routes configured
func (s *Server) Router() http.Handler {
	m := s.metrics
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{HeaderConsumedBytes, HeaderLayout},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", m.Handler())

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", s.handleSwagger)

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.APIKey != "" {
			r.Use(apiKeyMiddleware(s.config.APIKey, m))
		}

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		// Layouts
		r.Get("/layouts", m.InstrumentHandler("GET", "/api/v1/layouts", s.handleListLayouts))
		r.Get("/layouts/{name}", m.InstrumentHandler("GET", "/api/v1/layouts/{name}", s.handleGetLayout))
		r.Post("/layouts/{name}/decode", m.InstrumentHandler("POST", "/api/v1/layouts/{name}/decode", s.handleDecode))
		r.Post("/layouts/{name}/encode", m.InstrumentHandler("POST", "/api/v1/layouts/{name}/encode", s.handleEncode))

		// Keyed record store
		r.Get("/records", m.InstrumentHandler("GET", "/api/v1/records", s.handleListRecords))
		r.Post("/records/{layout}", m.InstrumentHandler("POST", "/api/v1/records/{layout}", s.handlePutRecord))
		r.Get("/records/{id}", m.InstrumentHandler("GET", "/api/v1/records/{id}", s.handleGetRecord))
		r.Delete("/records/{id}", m.InstrumentHandler("DELETE", "/api/v1/records/{id}", s.handleDeleteRecord))

		// Journal
		r.Get("/journal", m.InstrumentHandler("GET", "/api/v1/journal", s.handleListEntries))
		r.Post("/journal/{layout}", m.InstrumentHandler("POST", "/api/v1/journal/{layout}", s.handleAppendEntry))
		r.Get("/journal/{id}", m.InstrumentHandler("GET", "/api/v1/journal/{id}", s.handleGetEntry))
	})

	return r
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// StartServer serves s until ctx is cancelled, then shuts down gracefully
func StartServer(ctx context.Context, s *Server, config ServerConfig) error {
	logger := s.deps.Logger
	srv := &http.Server{
		Addr:              config.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting REST API server", "addr", srv.Addr)
		logger.Info("metrics available", "url", fmt.Sprintf("http://%s/metrics", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down REST API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

const swaggerUI = `<!DOCTYPE html>
<html>
<head>
	<title>cstruct API Documentation</title>
	<link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	<div id="swagger-ui"></div>
	<script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	<script>
	  window.onload = function() {
	    SwaggerUIBundle({
	      url: '/swagger/swagger.json',
	      dom_id: '#swagger-ui',
	      presets: [
	        SwaggerUIBundle.presets.apis,
	        SwaggerUIBundle.presets.standalone
	      ]
	    });
	  };
	</script>
</body>
</html>`

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/swagger/", "/swagger/index.html":
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerUI))
	case "/swagger/swagger.json":
		doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
		if err != nil {
			s.deps.Logger.Error("failed to generate swagger doc", "err", err)
			http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	default:
		http.NotFound(w, r)
	}
}
