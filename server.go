package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/orangewood-co/relaystream/recording"
	"github.com/orangewood-co/relaystream/stream"
)

// APIServer wires the HTTP surface to the stream registry and recording
// service.
type APIServer struct {
	config     *Config
	streams    *stream.Manager
	recordings *recording.Service
	logger     *Logger
	server     *http.Server
	startedAt  time.Time
}

// NewAPIServer constructs an APIServer. Start must be called to begin
// serving.
func NewAPIServer(config *Config, streams *stream.Manager, recordings *recording.Service, logger *Logger) *APIServer {
	return &APIServer{
		config:     config,
		streams:    streams,
		recordings: recordings,
		logger:     logger,
		startedAt:  time.Now(),
	}
}

func (s *APIServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /publish/{name}", s.handlePublish)
	mux.HandleFunc("GET /stream/{name}", s.handleStream)
	mux.HandleFunc("GET /api/streams", s.handleListStreams)
	mux.HandleFunc("GET /api/streams/{name}/stats", s.handleStreamStats)
	mux.HandleFunc("DELETE /api/streams/{name}", s.handleDeleteStream)
	mux.HandleFunc("GET /health", s.handleHealth)

	var handler http.Handler = mux
	if s.config.Server.CORSEnabled {
		handler = cors.AllowAll().Handler(handler)
	}
	return s.recoverMiddleware(handler)
}

// recoverMiddleware turns a panicking handler into a logged 500 instead of
// crashing the server, the Go-idiomatic equivalent of the exception
// handling a Flask app gets for free.
func (s *APIServer) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Printf("panic handling %s %s: %v", r.Method, r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Start builds the route table and begins serving. It blocks until Stop is
// called or the listener fails.
func (s *APIServer) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:           s.routes(),
		ReadTimeout:       ServerReadTimeout,
		WriteTimeout:      ServerWriteTimeout,
		IdleTimeout:       ServerIdleTimeout,
		ReadHeaderTimeout: ServerReadHeaderTimeout,
		MaxHeaderBytes:    HTTPMaxHeaderBytes,
	}

	s.logger.Printf("HTTP server starting on %s", s.server.Addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the HTTP server down, waiting up to 10 s for
// in-flight requests to finish. MJPEG fan-outs end only when the viewer
// disconnects or the stream is deleted, so one still open when the window
// ends is not waited for and Stop returns the context error.
func (s *APIServer) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
