package recording

import (
	"testing"
	"time"
)

func TestServiceStartStopLifecycle(t *testing.T) {
	s := NewService(t.TempDir(), 10, "auto", testLogger{})

	if !s.Start("cam1") {
		t.Fatal("expected first start to succeed")
	}
	if s.Start("cam1") {
		t.Fatal("expected second start on the same stream to report already-recording")
	}
	if !s.IsRecording("cam1") {
		t.Fatal("expected cam1 to be recording")
	}

	s.AddFrame("cam1", jpegFrame(t, 4, 4))
	s.AddFrame("missing", jpegFrame(t, 4, 4)) // no-op, must not panic

	if !s.Stop("cam1") {
		t.Fatal("expected stop to succeed")
	}
	if s.Stop("cam1") {
		t.Fatal("expected second stop to report nothing was recording")
	}
	if s.IsRecording("cam1") {
		t.Fatal("expected cam1 to no longer be recording")
	}
}

func TestServiceStopAll(t *testing.T) {
	s := NewService(t.TempDir(), 10, "auto", testLogger{})
	s.Start("a")
	s.Start("b")
	s.Start("c")

	done := make(chan struct{})
	go func() {
		s.StopAll()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("StopAll did not return in time")
	}

	for _, name := range []string{"a", "b", "c"} {
		if s.IsRecording(name) {
			t.Fatalf("expected %s to no longer be recording after StopAll", name)
		}
	}
}
