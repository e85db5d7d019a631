package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type testLogger struct{}

func (testLogger) Printf(string, ...interface{}) {}
func (testLogger) Debugf(string, ...interface{}) {}

type fakeRegistry struct {
	mu       sync.Mutex
	inactive []string
	deleted  []string
}

func (r *fakeRegistry) InactiveSince(time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.inactive...)
}

func (r *fakeRegistry) Delete(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, name)
	return true
}

type fakeRecordingStopper struct {
	mu      sync.Mutex
	stopped []string
}

func (s *fakeRecordingStopper) Stop(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = append(s.stopped, name)
	return true
}

func TestInactiveSweepStopsAndDeletes(t *testing.T) {
	registry := &fakeRegistry{inactive: []string{"ghost"}}
	recordings := &fakeRecordingStopper{}
	m := New(registry, recordings, t.TempDir(), time.Second, 7, testLogger{})

	m.RunInactiveSweepNow()

	if len(registry.deleted) != 1 || registry.deleted[0] != "ghost" {
		t.Fatalf("expected ghost to be deleted, got %v", registry.deleted)
	}
	if len(recordings.stopped) != 1 || recordings.stopped[0] != "ghost" {
		t.Fatalf("expected ghost's recording to be stopped first, got %v", recordings.stopped)
	}
}

func TestRetentionSweepDeletesOldFilesAndPrunesEmptyDirs(t *testing.T) {
	root := t.TempDir()
	streamDir := filepath.Join(root, "old")
	if err := os.MkdirAll(streamDir, 0o755); err != nil {
		t.Fatalf("failed to create stream dir: %v", err)
	}

	oldFile := filepath.Join(streamDir, "old_19700101_000000.mp4")
	if err := os.WriteFile(oldFile, []byte("data"), 0o644); err != nil {
		t.Fatalf("failed to write old file: %v", err)
	}
	oldTime := time.Now().AddDate(0, 0, -100)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("failed to backdate file: %v", err)
	}

	m := New(&fakeRegistry{}, &fakeRecordingStopper{}, root, time.Minute, 7, testLogger{})
	m.RunRetentionSweepNow()

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Fatalf("expected old file to be deleted, stat err=%v", err)
	}
	if _, err := os.Stat(streamDir); !os.IsNotExist(err) {
		t.Fatalf("expected now-empty stream directory to be pruned, stat err=%v", err)
	}
}

func TestRetentionSweepKeepsRecentFiles(t *testing.T) {
	root := t.TempDir()
	streamDir := filepath.Join(root, "fresh")
	if err := os.MkdirAll(streamDir, 0o755); err != nil {
		t.Fatalf("failed to create stream dir: %v", err)
	}
	freshFile := filepath.Join(streamDir, "fresh_20260101_000000.mp4")
	if err := os.WriteFile(freshFile, []byte("data"), 0o644); err != nil {
		t.Fatalf("failed to write fresh file: %v", err)
	}

	m := New(&fakeRegistry{}, &fakeRecordingStopper{}, root, time.Minute, 7, testLogger{})
	m.RunRetentionSweepNow()

	if _, err := os.Stat(freshFile); err != nil {
		t.Fatalf("expected fresh file to survive, stat err=%v", err)
	}
}

func TestParseScheduleTime(t *testing.T) {
	hour, minute, err := parseScheduleTime("03:00")
	if err != nil || hour != 3 || minute != 0 {
		t.Fatalf("expected 3:00, got hour=%d minute=%d err=%v", hour, minute, err)
	}
	if _, _, err := parseScheduleTime("not-a-time"); err == nil {
		t.Fatal("expected an error for a malformed schedule time")
	}
}

func TestStartWithBadScheduleTimeStillSchedulesInterval(t *testing.T) {
	m := New(&fakeRegistry{}, &fakeRecordingStopper{}, t.TempDir(), time.Second, 7, testLogger{})
	if err := m.Start(1, "not-a-time"); err != nil {
		t.Fatalf("expected Start to succeed despite bad schedule_time, got %v", err)
	}
	if got := len(m.cron.Entries()); got != 1 {
		t.Fatalf("expected only the interval sweep to be scheduled, got %d entries", got)
	}
	m.Stop()
}
