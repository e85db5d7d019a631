package main

import (
	"net/http"

	"github.com/orangewood-co/relaystream/stream"
)

// handleStream implements GET /stream/{name}: a multipart/x-mixed-replace
// MJPEG response fed by the stream manager's fan-out loop, one chunk per
// currently-published frame, at ~10 Hz.
func (s *APIServer) handleStream(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if !s.streams.Exists(name) {
		writeError(w, http.StatusNotFound, "unknown stream")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+stream.Boundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	err := s.streams.Fanout(r.Context(), name, func(chunk []byte) error {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		s.logger.Debugf("fan-out for %s ended: %v", name, err)
	}
}
