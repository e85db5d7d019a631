package recording

import "sync"

// Service tracks one Worker per actively-recording stream, keyed by stream
// name under a single mutex.
type Service struct {
	mu      sync.Mutex
	workers map[string]*Worker
	baseDir string
	fps     int
	codec   string
	logger  Logger
}

// NewService constructs a recording service that writes recordings under
// baseDir at the given target fps using codec ("auto" for encoder
// detection).
func NewService(baseDir string, fps int, codec string, logger Logger) *Service {
	return &Service{
		workers: make(map[string]*Worker),
		baseDir: baseDir,
		fps:     fps,
		codec:   codec,
		logger:  logger,
	}
}

// Start begins recording streamName if it isn't already being recorded.
// Returns false if a recording was already in progress.
func (s *Service) Start(streamName string) bool {
	s.mu.Lock()
	if _, exists := s.workers[streamName]; exists {
		s.mu.Unlock()
		return false
	}
	w := NewWorker(streamName, s.baseDir, s.fps, s.codec, s.logger)
	s.workers[streamName] = w
	s.mu.Unlock()

	w.Start()
	return true
}

// Stop finalizes and removes the recording for streamName, if any. Returns
// false if no recording was in progress.
func (s *Service) Stop(streamName string) bool {
	s.mu.Lock()
	w, exists := s.workers[streamName]
	if exists {
		delete(s.workers, streamName)
	}
	s.mu.Unlock()

	if !exists {
		return false
	}
	w.Stop()
	return true
}

// AddFrame forwards a JPEG payload to streamName's worker. It is a no-op if
// the stream is not being recorded.
func (s *Service) AddFrame(streamName string, frame []byte) {
	s.mu.Lock()
	w, exists := s.workers[streamName]
	s.mu.Unlock()
	if !exists {
		return
	}
	w.AddFrame(frame)
}

// IsRecording reports whether streamName currently has an active worker.
func (s *Service) IsRecording(streamName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.workers[streamName]
	return exists
}

// StopAll finalizes every in-flight recording, used during graceful
// shutdown.
func (s *Service) StopAll() {
	s.mu.Lock()
	workers := make([]*Worker, 0, len(s.workers))
	for name, w := range s.workers {
		workers = append(workers, w)
		delete(s.workers, name)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Stop()
		}(w)
	}
	wg.Wait()
}
