package recording

import (
	"encoding/json"
	"os"
	"time"
)

// Sidecar is the JSON metadata written next to a finished recording, with a
// stable field order: stream_name, start_time, end_time, duration_seconds,
// total_frames, average_fps, target_fps, codec, recording_path.
type Sidecar struct {
	StreamName      string  `json:"stream_name"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationSeconds float64 `json:"duration_seconds"`
	TotalFrames     int     `json:"total_frames"`
	AverageFPS      float64 `json:"average_fps"`
	TargetFPS       int     `json:"target_fps"`
	Codec           string  `json:"codec"`
	RecordingPath   string  `json:"recording_path"`
}

func buildSidecar(streamName string, start, end time.Time, frameCount, targetFPS int, codec, recordingPath string) Sidecar {
	duration := end.Sub(start).Seconds()
	var avgFPS float64
	if duration > 0 {
		avgFPS = roundTo2(float64(frameCount) / duration)
	}
	return Sidecar{
		StreamName:      streamName,
		StartTime:       start.Format(time.RFC3339),
		EndTime:         end.Format(time.RFC3339),
		DurationSeconds: duration,
		TotalFrames:     frameCount,
		AverageFPS:      avgFPS,
		TargetFPS:       targetFPS,
		Codec:           codec,
		RecordingPath:   recordingPath,
	}
}

func roundTo2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func writeSidecar(path string, s Sidecar) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
