package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// StreamRegistry is the slice of stream.Manager the inactive-stream sweep
// needs, kept as an interface here to avoid importing the stream package
// from cleanup.
type StreamRegistry interface {
	InactiveSince(timeout time.Duration) []string
	Delete(name string) bool
}

// RecordingStopper is the slice of recording.Service the inactive-stream
// sweep needs to finalize a recording before the stream entry disappears.
type RecordingStopper interface {
	Stop(name string) bool
}

// Manager runs two independent background sweeps: a fixed-interval
// inactive-stream sweep and a daily retention sweep over the recordings
// tree. Both run on cron/v3's own goroutine pool, so neither ever blocks an
// HTTP handler.
type Manager struct {
	streams       StreamRegistry
	recordings    RecordingStopper
	recordingsDir string
	timeout       time.Duration
	retentionDays int

	logger Logger
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
}

// New constructs a cleanup Manager. recordingsDir is the root of the
// persisted recordings tree; timeout is streams.timeout_seconds; retention
// is recording.retention_days.
func New(streams StreamRegistry, recordings RecordingStopper, recordingsDir string, timeout time.Duration, retentionDays int, logger Logger) *Manager {
	return &Manager{
		streams:       streams,
		recordings:    recordings,
		recordingsDir: recordingsDir,
		timeout:       timeout,
		retentionDays: retentionDays,
		logger:        logger,
		cron:          cron.New(),
	}
}

// Start schedules both sweeps. intervalSeconds is cleanup.interval_seconds;
// scheduleTime is cleanup.schedule_time ("HH:MM", 24h local). A malformed
// scheduleTime is logged and only that job is skipped (SchedulerMisconfig);
// the interval sweep still runs.
func (m *Manager) Start(intervalSeconds int, scheduleTime string) error {
	spec := fmt.Sprintf("@every %ds", intervalSeconds)
	if _, err := m.cron.AddFunc(spec, m.runInactiveSweep); err != nil {
		return fmt.Errorf("schedule inactive-stream sweep: %w", err)
	}

	hour, minute, err := parseScheduleTime(scheduleTime)
	if err != nil {
		m.logger.Printf("invalid cleanup.schedule_time %q, retention sweep disabled: %v", scheduleTime, err)
	} else {
		cronSpec := fmt.Sprintf("%d %d * * *", minute, hour)
		if _, err := m.cron.AddFunc(cronSpec, m.runRetentionSweep); err != nil {
			m.logger.Printf("failed to schedule retention sweep: %v", err)
		}
	}

	m.cron.Start()
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	return nil
}

// Stop waits for any in-flight sweep to finish and halts the scheduler.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	ctx := m.cron.Stop()
	<-ctx.Done()
}

// RunNow runs the inactive-stream sweep and then the retention sweep
// synchronously, outside of the cron schedule.
func (m *Manager) RunNow() {
	m.runInactiveSweep()
	m.runRetentionSweep()
}

// RunInactiveSweepNow triggers the inactive-stream sweep synchronously,
// outside of the cron schedule. Exposed for tests and manual operator use.
func (m *Manager) RunInactiveSweepNow() {
	m.runInactiveSweep()
}

// RunRetentionSweepNow triggers the retention sweep synchronously. Exposed
// for tests and manual operator use.
func (m *Manager) RunRetentionSweepNow() {
	m.runRetentionSweep()
}

func (m *Manager) runInactiveSweep() {
	names := m.streams.InactiveSince(m.timeout)
	for _, name := range names {
		m.recordings.Stop(name)
		m.streams.Delete(name)
		m.logger.Printf("cleanup: removed inactive stream %q", name)
	}
}

func (m *Manager) runRetentionSweep() {
	cutoff := time.Now().AddDate(0, 0, -m.retentionDays)

	entries, err := os.ReadDir(m.recordingsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Printf("retention sweep: failed to read recordings directory: %v", err)
		}
		return
	}

	deleted := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		streamDir := filepath.Join(m.recordingsDir, entry.Name())
		n := deleteOlderThan(streamDir, cutoff, m.logger)
		deleted += n
		pruneEmptyDirs(streamDir, m.logger)
	}

	if deleted > 0 {
		m.logger.Printf("retention sweep: deleted %d file(s) older than %d day(s)", deleted, m.retentionDays)
	}
}

func deleteOlderThan(dir string, cutoff time.Time, logger Logger) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	deleted := 0
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			deleted += deleteOlderThan(path, cutoff, logger)
			pruneEmptyDirs(path, logger)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logger.Printf("retention sweep: failed to stat %s: %v", path, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logger.Printf("retention sweep: failed to delete %s: %v", path, err)
			continue
		}
		deleted++
	}
	return deleted
}

// pruneEmptyDirs removes dir if it contains no entries. Callers walk
// bottom-up so a directory left empty by this pass is pruned on its
// parent's turn.
func pruneEmptyDirs(dir string, logger Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	if err := os.Remove(dir); err != nil {
		logger.Debugf("retention sweep: failed to prune empty directory %s: %v", dir, err)
	}
}

func parseScheduleTime(hhmm string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
