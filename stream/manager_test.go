package stream

import (
	"context"
	"sync"
	"testing"
	"time"
)

type testLogger struct{}

func (testLogger) Printf(string, ...interface{}) {}
func (testLogger) Debugf(string, ...interface{}) {}

func TestCreateAndPublish(t *testing.T) {
	m := NewManager(10, 5, testLogger{})

	created, err := m.Create("cam1")
	if err != nil || !created {
		t.Fatalf("expected fresh create, got created=%v err=%v", created, err)
	}

	created, err = m.Create("cam1")
	if err != nil || created {
		t.Fatalf("expected AlreadyExists (created=false, err=nil), got created=%v err=%v", created, err)
	}

	if err := m.Publish("missing", []byte("x")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := m.Publish("cam1", []byte("frame1")); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	stats, ok := m.Stats("cam1")
	if !ok || stats.TotalFrames != 1 || !stats.HasCurrentFrame {
		t.Fatalf("unexpected stats: %+v ok=%v", stats, ok)
	}
}

func TestInvalidName(t *testing.T) {
	m := NewManager(10, 5, testLogger{})
	if _, err := m.Create("../etc"); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if m.Count() != 0 {
		t.Fatalf("expected no stream created for invalid name")
	}
}

func TestCapacityExceeded(t *testing.T) {
	m := NewManager(2, 5, testLogger{})
	for _, name := range []string{"a", "b"} {
		if created, err := m.Create(name); err != nil || !created {
			t.Fatalf("expected %s to be created: created=%v err=%v", name, created, err)
		}
	}
	if _, err := m.Create("c"); err != ErrCapacityExceeded {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if m.Count() != 2 {
		t.Fatalf("expected live count to remain 2, got %d", m.Count())
	}
}

func TestFrameBufferEviction(t *testing.T) {
	m := NewManager(10, 3, testLogger{})
	m.Create("s")
	for i := 0; i < 5; i++ {
		m.Publish("s", []byte{byte(i)})
	}
	stats, _ := m.Stats("s")
	if stats.BufferSize != 3 {
		t.Fatalf("expected buffer size capped at 3, got %d", stats.BufferSize)
	}
	if stats.TotalFrames != 5 {
		t.Fatalf("expected total_frames=5, got %d", stats.TotalFrames)
	}
}

func TestConcurrentAutoCreateRace(t *testing.T) {
	m := NewManager(50, 5, testLogger{})
	var wg sync.WaitGroup
	successes := make([]bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := m.Create("race")
			successes[i] = err == nil
			_ = created
		}(i)
	}
	wg.Wait()
	for i, ok := range successes {
		if !ok {
			t.Fatalf("goroutine %d saw an error creating the shared stream", i)
		}
	}
	if m.Count() != 1 {
		t.Fatalf("expected exactly one stream to exist after the race, got %d", m.Count())
	}
}

func TestFanoutViewerCountReturnsToZero(t *testing.T) {
	m := NewManager(10, 5, testLogger{})
	m.Create("s")
	m.Publish("s", []byte("frame"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	received := make(chan struct{}, 1)

	go func() {
		done <- m.Fanout(ctx, "s", func(chunk []byte) error {
			select {
			case received <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first chunk")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected fanout error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fanout to exit")
	}

	stats, _ := m.Stats("s")
	if stats.ViewerCount != 0 {
		t.Fatalf("expected viewer_count back to 0, got %d", stats.ViewerCount)
	}
}

func TestFanoutTerminatesOnStreamDeletion(t *testing.T) {
	m := NewManager(10, 5, testLogger{})
	m.Create("s")
	m.Publish("s", []byte("frame"))

	done := make(chan error, 1)
	go func() {
		done <- m.Fanout(context.Background(), "s", func([]byte) error { return nil })
	}()

	time.Sleep(50 * time.Millisecond)
	m.Delete("s")

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fanout did not terminate after stream deletion")
	}
}

func TestInactiveSince(t *testing.T) {
	m := NewManager(10, 5, testLogger{})
	m.Create("active")
	m.Create("stale")
	m.Publish("active", []byte("f"))
	m.Publish("stale", []byte("f"))

	m.mu.Lock()
	m.streams["stale"].LastFrameTime = time.Now().Add(-10 * time.Second)
	m.mu.Unlock()

	inactive := m.InactiveSince(5 * time.Second)
	if len(inactive) != 1 || inactive[0] != "stale" {
		t.Fatalf("expected only 'stale' inactive, got %v", inactive)
	}
}
