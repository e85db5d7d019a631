package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/orangewood-co/relaystream/stream"
)

// handlePublish implements POST /publish/{name}: a publisher posts a
// multipart field "frame" containing JPEG bytes. The stream is
// auto-created on first publish if it doesn't already exist.
func (s *APIServer) handlePublish(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	maxBytes := int64(s.config.Server.MaxFrameSizeMB) * BytesPerMB
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "request body missing or oversized")
		return
	}

	file, _, err := r.FormFile("frame")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing multipart field 'frame'")
		return
	}
	defer file.Close()

	frame, err := io.ReadAll(file)
	if err != nil || len(frame) == 0 {
		writeError(w, http.StatusBadRequest, "empty frame payload")
		return
	}

	if _, err := s.streams.Create(name); err != nil {
		switch {
		case errors.Is(err, stream.ErrInvalidName):
			writeError(w, http.StatusBadRequest, "invalid stream name")
		case errors.Is(err, stream.ErrCapacityExceeded):
			writeError(w, http.StatusServiceUnavailable, "maximum concurrent streams reached")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if err := s.streams.Publish(name, frame); err != nil {
		writeError(w, http.StatusNotFound, "unknown stream")
		return
	}

	if s.config.Recording.Enabled {
		s.recordings.Start(name)
		s.recordings.AddFrame(name, frame)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"stream":     name,
		"frame_size": len(frame),
	})
}
