package stream

import (
	"errors"
	"regexp"
	"time"
)

// nameRE is the stream-name grammar: alphanumeric, underscore, dash, 1-64 chars.
var nameRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidName reports whether name satisfies the stream-name grammar.
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

var (
	// ErrInvalidName is returned when a stream name fails the naming grammar.
	ErrInvalidName = errors.New("invalid stream name")
	// ErrCapacityExceeded is returned when max_concurrent live streams are already registered.
	ErrCapacityExceeded = errors.New("maximum concurrent streams reached")
	// ErrNotFound is returned for operations against an unknown stream name.
	ErrNotFound = errors.New("stream not found")
)

// Info is the in-memory state of one live stream. All fields are mutated
// only by Manager while holding its lock; callers receive copies via Stats.
type Info struct {
	Name          string
	CreatedAt     time.Time
	LastFrameTime time.Time
	CurrentFrame  []byte
	FrameBuffer   [][]byte // bounded ring of the most recent frames; oldest evicted first
	ViewerCount   int
	TotalFrames   uint64

	maxBuffer int
}

func newInfo(name string, maxBuffer int) *Info {
	now := time.Now()
	return &Info{
		Name:          name,
		CreatedAt:     now,
		LastFrameTime: now,
		FrameBuffer:   make([][]byte, 0, maxBuffer),
		maxBuffer:     maxBuffer,
	}
}

// appendFrame records frame as the current frame and pushes it onto the
// bounded frame buffer, evicting the oldest entry on overflow.
func (i *Info) appendFrame(frame []byte) {
	i.CurrentFrame = frame
	if i.maxBuffer <= 0 {
		i.LastFrameTime = time.Now()
		i.TotalFrames++
		return
	}
	if len(i.FrameBuffer) >= i.maxBuffer {
		i.FrameBuffer = append(i.FrameBuffer[1:], frame)
	} else {
		i.FrameBuffer = append(i.FrameBuffer, frame)
	}
	i.LastFrameTime = time.Now()
	i.TotalFrames++
}

// Stats is a point-in-time snapshot of a stream's public statistics.
type Stats struct {
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"created_at"`
	UptimeSeconds   float64   `json:"uptime_seconds"`
	LastFrameTime   time.Time `json:"last_frame_time"`
	InactiveSeconds float64   `json:"inactive_seconds"`
	TotalFrames     uint64    `json:"total_frames"`
	ViewerCount     int       `json:"viewer_count"`
	BufferSize      int       `json:"buffer_size"`
	HasCurrentFrame bool      `json:"has_current_frame"`
}

func (i *Info) snapshot(now time.Time) Stats {
	return Stats{
		Name:            i.Name,
		CreatedAt:       i.CreatedAt,
		UptimeSeconds:   now.Sub(i.CreatedAt).Seconds(),
		LastFrameTime:   i.LastFrameTime,
		InactiveSeconds: now.Sub(i.LastFrameTime).Seconds(),
		TotalFrames:     i.TotalFrames,
		ViewerCount:     i.ViewerCount,
		BufferSize:      len(i.FrameBuffer),
		HasCurrentFrame: len(i.CurrentFrame) > 0,
	}
}
