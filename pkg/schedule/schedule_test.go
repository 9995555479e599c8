package schedule

import (
	"sync"
	"testing"
	"time"
)

func TestDeferredRunsTask(t *testing.T) {
	s := NewDeferred(time.Millisecond)
	defer s.Stop()

	done := make(chan struct{})
	s.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduled task never ran")
	}
}

func TestDeferredSupersedes(t *testing.T) {
	s := NewDeferred(20 * time.Millisecond)
	defer s.Stop()

	var mu sync.Mutex
	var ran []string

	s.Schedule(func() {
		mu.Lock()
		ran = append(ran, "first")
		mu.Unlock()
	})
	s.Schedule(func() {
		mu.Lock()
		ran = append(ran, "second")
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(ran) != 1 || ran[0] != "second" {
		t.Fatalf("expected only the superseding task to run, got %v", ran)
	}
}

func TestDeferredStopCancelsPending(t *testing.T) {
	s := NewDeferred(20 * time.Millisecond)

	ran := make(chan struct{}, 1)
	s.Schedule(func() { ran <- struct{}{} })
	s.Stop()

	select {
	case <-ran:
		t.Fatal("task ran after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDeferredUsableAfterStop(t *testing.T) {
	s := NewDeferred(time.Millisecond)
	s.Stop()

	done := make(chan struct{})
	s.Schedule(func() { close(done) })
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler unusable after Stop")
	}
}

func TestImmediateRunsSynchronously(t *testing.T) {
	s := NewImmediate()

	ran := false
	s.Schedule(func() { ran = true })
	if !ran {
		t.Fatal("Immediate did not run the task synchronously")
	}
}

func TestManualCoalesces(t *testing.T) {
	s := NewManual()

	var ran []int
	s.Schedule(func() { ran = append(ran, 1) })
	s.Schedule(func() { ran = append(ran, 2) })
	s.Schedule(func() { ran = append(ran, 3) })

	if !s.Pending() {
		t.Fatal("expected a pending task before Fire")
	}
	s.Fire()

	if len(ran) != 1 || ran[0] != 3 {
		t.Fatalf("expected only the newest task at Fire, got %v", ran)
	}
	if s.Pending() {
		t.Fatal("expected no pending task after Fire")
	}

	// Fire with nothing pending is a no-op.
	s.Fire()
	if len(ran) != 1 {
		t.Fatalf("unexpected extra run: %v", ran)
	}
}

func TestManualStopDiscards(t *testing.T) {
	s := NewManual()

	ran := false
	s.Schedule(func() { ran = true })
	s.Stop()
	s.Fire()

	if ran {
		t.Fatal("task ran after Stop")
	}
}
