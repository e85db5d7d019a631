package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orangewood-co/relaystream/recording"
	"github.com/orangewood-co/relaystream/stream"
)

type testLogger struct{}

func (testLogger) Printf(string, ...interface{}) {}
func (testLogger) Debugf(string, ...interface{}) {}
func (testLogger) Fatalf(string, ...interface{}) {}

func newTestServer(t *testing.T) *APIServer {
	t.Helper()
	cfg := defaultConfig()
	cfg.Recording.Enabled = false
	cfg.Recording.BaseDir = t.TempDir()

	streams := stream.NewManager(cfg.Streams.MaxConcurrent, cfg.Streams.MaxBufferFrames, testLogger{})
	recordings := recording.NewService(cfg.Recording.BaseDir, cfg.Recording.FPS, cfg.Recording.Codec, testLogger{})
	return NewAPIServer(cfg, streams, recordings, NewLogger("error"))
}

func multipartFrame(t *testing.T, field string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "frame.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandlePublishHappyPath(t *testing.T) {
	s := newTestServer(t)
	router := s.routes()

	body, contentType := multipartFrame(t, "frame", bytes.Repeat([]byte{0xFF}, 100))
	req := httptest.NewRequest(http.MethodPost, "/publish/cam1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "success" || resp["stream"] != "cam1" {
		t.Fatalf("unexpected response body: %+v", resp)
	}
}

func TestHandlePublishRejectsInvalidName(t *testing.T) {
	s := newTestServer(t)
	router := s.routes()

	body, contentType := multipartFrame(t, "frame", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/publish/bad%21name", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid stream name, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleListStreamsAndStats(t *testing.T) {
	s := newTestServer(t)
	router := s.routes()

	body, contentType := multipartFrame(t, "frame", bytes.Repeat([]byte{1}, 10))
	req := httptest.NewRequest(http.MethodPost, "/publish/cam1", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/streams", nil))
	var listResp struct {
		Count   int `json:"count"`
		Streams []struct {
			Name string `json:"name"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if listResp.Count != 1 || listResp.Streams[0].Name != "cam1" {
		t.Fatalf("unexpected list response: %+v", listResp)
	}

	statsRec := httptest.NewRecorder()
	router.ServeHTTP(statsRec, httptest.NewRequest(http.MethodGet, "/api/streams/cam1/stats", nil))
	if statsRec.Code != http.StatusOK {
		t.Fatalf("expected 200 for stats, got %d", statsRec.Code)
	}

	missingRec := httptest.NewRecorder()
	router.ServeHTTP(missingRec, httptest.NewRequest(http.MethodGet, "/api/streams/missing/stats", nil))
	if missingRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown stream, got %d", missingRec.Code)
	}
}

func TestHandleDeleteStream(t *testing.T) {
	s := newTestServer(t)
	router := s.routes()

	body, contentType := multipartFrame(t, "frame", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/publish/cam1", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/streams/cam1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	missingRec := httptest.NewRecorder()
	router.ServeHTTP(missingRec, httptest.NewRequest(http.MethodDelete, "/api/streams/cam1", nil))
	if missingRec.Code != http.StatusNotFound {
		t.Fatalf("expected second delete to 404, got %d", missingRec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	router := s.routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("unexpected health response: %+v", resp)
	}
}

func TestHandleStreamNotFound(t *testing.T) {
	s := newTestServer(t)
	router := s.routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
