package background

import (
	"strings"
	"testing"
	"time"
)

func TestRunToCompletion(t *testing.T) {
	m := NewManager(t.TempDir())

	id, err := m.Run("true", 10*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m.Wait()

	job, err := m.Check(id)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if job.Status != StatusDone {
		t.Fatalf("expected done, got %s", job.Status)
	}
}

func TestFailureReported(t *testing.T) {
	m := NewManager(t.TempDir())

	id, err := m.Run("echo boom; exit 2", 10*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m.Wait()

	job, err := m.Check(id)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if job.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.ExitCode != 2 {
		t.Fatalf("expected exit 2, got %d", job.ExitCode)
	}
	if !strings.Contains(job.Output, "boom") {
		t.Fatalf("expected diagnostic output, got %q", job.Output)
	}
}

func TestDrainExactlyOnce(t *testing.T) {
	m := NewManager(t.TempDir())

	id, err := m.Run("true", 10*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m.Wait()

	first := m.Drain()
	if len(first) != 1 || first[0].ID != id {
		t.Fatalf("expected one notification for %s, got %v", id, first)
	}

	for i := 0; i < 3; i++ {
		if extra := m.Drain(); len(extra) != 0 {
			t.Fatalf("drain %d: expected empty, got %v", i, extra)
		}
	}
}

func TestCheckHasNoDrainSideEffect(t *testing.T) {
	m := NewManager(t.TempDir())

	id, _ := m.Run("true", 10*time.Second)
	m.Wait()

	if _, err := m.Check(id); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got := m.Drain(); len(got) != 1 {
		t.Fatalf("expected notification to survive Check, got %v", got)
	}
}

func TestDangerousCommandRefused(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.Run("sudo reboot", time.Second); err == nil {
		t.Fatal("expected dangerous command to be refused")
	}
}

func TestEvictOnlyDrained(t *testing.T) {
	m := NewManager(t.TempDir())

	m.Run("true", 10*time.Second)
	m.Wait()

	if removed := m.Evict(); removed != 0 {
		t.Fatalf("expected undrained job kept, evicted %d", removed)
	}
	m.Drain()
	if removed := m.Evict(); removed != 1 {
		t.Fatalf("expected drained job evicted, got %d", removed)
	}
}
