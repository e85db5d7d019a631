package recording

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	inboxCapacity  = 100
	dequeueTimeout = time.Second
	stopJoinWindow = 5 * time.Second
)

type workerState int

const (
	stateIdle workerState = iota
	stateRecording
	stateStopped
)

// Worker is the per-stream asynchronous encoder: it owns a bounded JPEG
// inbox, decodes frames, opens a Container on the first successfully
// decoded frame, writes every subsequent frame with the same dimensions
// (frames of other dimensions are dropped), and finalizes a sidecar on
// stop.
type Worker struct {
	streamName string
	baseDir    string
	fps        int
	codec      string
	logger     Logger

	newContainer func(path string, fps int, encoder string) Container

	inbox    chan []byte
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}

	mu            sync.Mutex
	state         workerState
	container     Container
	recordingPath string
	metadataPath  string
	startTime     time.Time
	frameCount    int
	width, height int
}

// NewWorker constructs a worker for streamName. Recordings are written under
// baseDir/streamName/. codec names the configured video codec, resolved to
// an ffmpeg "-c:v" value by resolveEncoder when the container is opened
// ("auto" triggers hardware-encoder detection; a known FourCC identifier
// like "mp4v" is translated to its ffmpeg equivalent).
func NewWorker(streamName, baseDir string, fps int, codec string, logger Logger) *Worker {
	return &Worker{
		streamName: streamName,
		baseDir:    baseDir,
		fps:        fps,
		codec:      codec,
		logger:     logger,
		newContainer: func(path string, fps int, encoder string) Container {
			return newFFmpegContainer(path, fps, encoder)
		},
		inbox:  make(chan []byte, inboxCapacity),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the worker's run loop in a background goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Stop signals the worker to finalize and blocks up to 5s for it to exit.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	select {
	case <-w.doneCh:
	case <-time.After(stopJoinWindow):
		w.logger.Printf("recording worker for %s did not stop within %s", w.streamName, stopJoinWindow)
	}
}

// AddFrame enqueues a JPEG payload without blocking. On a full inbox the
// newest frame is dropped (load-shedding, not an error).
func (w *Worker) AddFrame(frame []byte) {
	select {
	case w.inbox <- frame:
	default:
		w.logger.Printf("recording inbox full for %s, dropping frame", w.streamName)
	}
}

// FrameCount returns the number of frames written so far.
func (w *Worker) FrameCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frameCount
}

func (w *Worker) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			w.finalize()
			return
		case frame := <-w.inbox:
			if w.handleFrame(frame) {
				// container-open failure (abort, no sidecar) or write
				// failure (already finalized with a sidecar): exit.
				return
			}
		case <-time.After(dequeueTimeout):
			// idle tick, lets the stop channel be re-checked promptly.
		}
	}
}

// handleFrame decodes and writes one frame. It returns true if the worker
// must exit immediately: on a container-open failure (nothing written), or
// on a write failure (after finalize has closed the container and written
// the sidecar).
func (w *Worker) handleFrame(frame []byte) (fatal bool) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		w.logger.Debugf("failed to decode frame for %s: %v", w.streamName, err)
		return false
	}

	w.mu.Lock()
	state := w.state
	w.mu.Unlock()

	if state == stateIdle {
		bounds := img.Bounds()
		if err := w.open(bounds.Dx(), bounds.Dy()); err != nil {
			w.logger.Printf("failed to open recording container for %s: %v", w.streamName, err)
			return true
		}
	}

	if err := w.write(img); err != nil {
		w.logger.Printf("recording write failed for %s, finalizing: %v", w.streamName, err)
		w.finalize()
		// Treat like a stop: caller's run loop should also exit since the
		// container is already closed; returning fatal=true ends run().
		return true
	}
	return false
}

func (w *Worker) open(width, height int) error {
	streamDir := filepath.Join(w.baseDir, w.streamName)
	if err := os.MkdirAll(streamDir, 0o755); err != nil {
		return fmt.Errorf("create stream directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	base := fmt.Sprintf("%s_%s", w.streamName, timestamp)
	recordingPath := filepath.Join(streamDir, base+".mp4")
	metadataPath := filepath.Join(streamDir, base+".json")

	encoder := resolveEncoder(w.codec, w.logger)

	container := w.newContainer(recordingPath, w.fps, encoder)
	if err := container.Open(width, height); err != nil {
		return err
	}

	w.mu.Lock()
	w.container = container
	w.recordingPath = recordingPath
	w.metadataPath = metadataPath
	w.startTime = time.Now()
	w.frameCount = 0
	w.width, w.height = width, height
	w.state = stateRecording
	w.mu.Unlock()

	w.logger.Printf("recording started: %s", recordingPath)
	return nil
}

func (w *Worker) write(img image.Image) error {
	w.mu.Lock()
	container := w.container
	width, height := w.width, w.height
	w.mu.Unlock()

	if container == nil {
		return nil
	}

	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		// Mid-stream resolution change: drop the mismatched frame and stay
		// in RECORDING rather than aborting the whole recording.
		w.logger.Debugf("dropping frame for %s: dimensions changed to %dx%d", w.streamName, bounds.Dx(), bounds.Dy())
		return nil
	}

	if err := container.WriteFrame(img); err != nil {
		return err
	}

	w.mu.Lock()
	w.frameCount++
	w.mu.Unlock()
	return nil
}

// finalize closes the container (if any) and writes the sidecar, moving the
// worker to STOPPED. Safe to call multiple times.
func (w *Worker) finalize() {
	w.mu.Lock()
	if w.state == stateStopped {
		w.mu.Unlock()
		return
	}
	container := w.container
	wasRecording := w.state == stateRecording
	start := w.startTime
	frameCount := w.frameCount
	metadataPath := w.metadataPath
	recordingPath := w.recordingPath
	w.state = stateStopped
	w.mu.Unlock()

	if container != nil {
		if err := container.Close(); err != nil {
			w.logger.Printf("error closing container for %s: %v", w.streamName, err)
		}
	}

	if !wasRecording {
		return
	}

	end := time.Now()
	sidecar := buildSidecar(w.streamName, start, end, frameCount, w.fps, w.codec, recordingPath)
	if err := writeSidecar(metadataPath, sidecar); err != nil {
		w.logger.Printf("failed to write sidecar for %s: %v", w.streamName, err)
		return
	}
	w.logger.Printf("metadata saved: %s", metadataPath)
}
