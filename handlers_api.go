package main

import "net/http"

// handleListStreams implements GET /api/streams.
func (s *APIServer) handleListStreams(w http.ResponseWriter, r *http.Request) {
	stats := s.streams.AllStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(stats),
		"streams": stats,
	})
}

// handleStreamStats implements GET /api/streams/{name}/stats.
func (s *APIServer) handleStreamStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	stats, ok := s.streams.Stats(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown stream")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleDeleteStream implements DELETE /api/streams/{name}. Recording, if
// active, is stopped (and its sidecar finalized) before the stream entry is
// removed.
func (s *APIServer) handleDeleteStream(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.streams.Exists(name) {
		writeError(w, http.StatusNotFound, "unknown stream")
		return
	}

	s.recordings.Stop(name)
	s.streams.Delete(name)

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "deleted",
		"message": "stream " + name + " removed",
	})
}

// handleHealth implements GET /health.
func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"active_streams":    s.streams.Count(),
		"max_streams":       s.config.Streams.MaxConcurrent,
		"recording_enabled": s.config.Recording.Enabled,
		"config": map[string]interface{}{
			"stream_timeout_seconds": s.config.Streams.TimeoutSeconds,
			"max_buffer_frames":      s.config.Streams.MaxBufferFrames,
			"max_frame_size_mb":      s.config.Server.MaxFrameSizeMB,
			"cors_enabled":           s.config.Server.CORSEnabled,
		},
	})
}
