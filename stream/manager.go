// Package stream implements the authoritative live stream registry: the
// per-process map of named streams, their current frame and buffer, viewer
// bookkeeping, and the MJPEG fan-out loop.
package stream

import (
	"context"
	"sync"
	"time"
)

const fanoutPollInterval = 100 * time.Millisecond

// Boundary is the MJPEG multipart boundary token used by both FormatChunk
// and the Content-Type header a viewer response declares.
const Boundary = "frame"

var (
	chunkHeader = []byte("--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n")
	chunkFooter = []byte("\r\n")
)

// FormatChunk wraps a JPEG payload in an MJPEG multipart chunk.
func FormatChunk(frame []byte) []byte {
	out := make([]byte, 0, len(chunkHeader)+len(frame)+len(chunkFooter))
	out = append(out, chunkHeader...)
	out = append(out, frame...)
	out = append(out, chunkFooter...)
	return out
}

// Manager is the thread-safe hub of all live streams. A single mutex guards
// the map and every Info it holds; all I/O (transport writes, sleeps)
// happens with the lock released.
type Manager struct {
	mu            sync.Mutex
	streams       map[string]*Info
	maxConcurrent int
	maxBuffer     int
	logger        Logger
}

// NewManager creates an empty registry.
func NewManager(maxConcurrent, maxBuffer int, logger Logger) *Manager {
	return &Manager{
		streams:       make(map[string]*Info),
		maxConcurrent: maxConcurrent,
		maxBuffer:     maxBuffer,
		logger:        logger,
	}
}

// Create registers a fresh stream. It returns (created=false, err=nil) if
// the name already exists, ErrInvalidName if the name fails the grammar,
// and ErrCapacityExceeded if max_concurrent live streams are already
// registered (existing streams are unaffected by capacity).
func (m *Manager) Create(name string) (created bool, err error) {
	if !ValidName(name) {
		return false, ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.streams[name]; ok {
		return false, nil
	}
	if len(m.streams) >= m.maxConcurrent {
		return false, ErrCapacityExceeded
	}

	m.streams[name] = newInfo(name, m.maxBuffer)
	m.logger.Printf("stream created: %s", name)
	return true, nil
}

// Publish records a new frame for an existing stream. Returns ErrNotFound
// if the stream does not exist.
func (m *Manager) Publish(name string, frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.streams[name]
	if !ok {
		return ErrNotFound
	}
	info.appendFrame(frame)
	return nil
}

// Current returns the most recent frame for name, or nil if absent/unknown.
func (m *Manager) Current(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.streams[name]
	if !ok {
		return nil
	}
	return info.CurrentFrame
}

// Exists reports whether name is currently a live stream.
func (m *Manager) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.streams[name]
	return ok
}

// Delete removes a stream, returning whether anything was removed. Idempotent.
func (m *Manager) Delete(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.streams[name]; !ok {
		return false
	}
	delete(m.streams, name)
	m.logger.Printf("stream deleted: %s", name)
	return true
}

// Count returns the current number of live streams.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

// Stats returns a point-in-time snapshot for name, or ok=false if unknown.
func (m *Manager) Stats(name string) (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.streams[name]
	if !ok {
		return Stats{}, false
	}
	return info.snapshot(time.Now()), true
}

// AllStats returns a snapshot of every live stream, in no particular order.
func (m *Manager) AllStats() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := make([]Stats, 0, len(m.streams))
	for _, info := range m.streams {
		out = append(out, info.snapshot(now))
	}
	return out
}

// InactiveSince returns the names of streams whose last published frame is
// at least timeout old, as of the moment this is called.
func (m *Manager) InactiveSince(timeout time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var names []string
	for name, info := range m.streams {
		if now.Sub(info.LastFrameTime) >= timeout {
			names = append(names, name)
		}
	}
	return names
}

// incrementViewer bumps viewer_count for name if it still exists.
func (m *Manager) incrementViewer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.streams[name]; ok {
		info.ViewerCount++
	}
}

// decrementViewer lowers viewer_count for name if it still exists. Safe to
// call even after the stream has been deleted.
func (m *Manager) decrementViewer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.streams[name]; ok && info.ViewerCount > 0 {
		info.ViewerCount--
	}
}

// Fanout runs the pull-mode MJPEG fan-out loop for name: it repeatedly reads
// the current frame and invokes send with a formatted multipart chunk,
// polling at ~10 Hz. It registers/deregisters the viewer exactly once around
// the loop (on any exit path: context cancellation, stream deletion, or a
// send error), and returns nil on a graceful stop (ctx done or stream gone)
// or the error returned by send otherwise.
func (m *Manager) Fanout(ctx context.Context, name string, send func([]byte) error) error {
	m.incrementViewer(name)
	defer func() {
		m.decrementViewer(name)
		m.logger.Printf("viewer disconnected from %s", name)
	}()

	m.logger.Printf("starting fan-out for %s", name)

	ticker := time.NewTicker(fanoutPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !m.Exists(name) {
				return nil
			}
			frame := m.Current(name)
			if len(frame) == 0 {
				continue
			}
			if err := send(FormatChunk(frame)); err != nil {
				return err
			}
		}
	}
}
