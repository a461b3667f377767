// Package background runs long shell commands detached from the agent loop
// and delivers their completions through a drain-once notification queue.
package background

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anuris-ai/anuris/internal/shell"
)

// Status is the lifecycle state of a background job.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is a detached command execution. Once done or failed it is retained
// until drained at least once, after which it is eligible for eviction.
type Job struct {
	ID          string
	Command     string
	Status      Status
	Output      string
	ExitCode    int
	StartedAt   time.Time
	CompletedAt time.Time

	drained bool
}

// Manager owns background jobs. All methods are safe for concurrent use;
// completions surface only through Drain, the engine never blocks on a job.
type Manager struct {
	mu            sync.Mutex
	workspaceRoot string
	jobs          map[string]*Job
	finished      []string // job ids completed since the last drain
	wg            sync.WaitGroup
}

// NewManager creates a Manager executing commands in workspaceRoot.
func NewManager(workspaceRoot string) *Manager {
	return &Manager{
		workspaceRoot: workspaceRoot,
		jobs:          make(map[string]*Job),
	}
}

// Run starts command on its own goroutine and returns the job id
// immediately. Dangerous commands are refused up front.
func (m *Manager) Run(command string, timeout time.Duration) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", fmt.Errorf("command is required")
	}
	if shell.Dangerous(command) {
		return "", fmt.Errorf("dangerous command blocked")
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	job := &Job{
		ID:        "bg-" + strings.ReplaceAll(uuid.New().String()[:8], "-", ""),
		Command:   command,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.wg.Add(1)
	go m.execute(job.ID, command, timeout)

	slog.Info("background job started", "job", job.ID, "command", command)
	return job.ID, nil
}

func (m *Manager) execute(id, command string, timeout time.Duration) {
	defer m.wg.Done()

	// Jobs deliberately outlive the loop invocation that started them, so
	// they run against a fresh context rather than the round's.
	res, err := shell.Run(context.Background(), command, m.workspaceRoot, timeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	job.CompletedAt = time.Now()
	switch {
	case err != nil:
		job.Status = StatusFailed
		job.Output = err.Error()
		job.ExitCode = -1
	case res.TimedOut:
		job.Status = StatusFailed
		job.Output = fmt.Sprintf("timeout after %s\n%s", timeout, res.Output)
		job.ExitCode = res.ExitCode
	case res.ExitCode != 0:
		job.Status = StatusFailed
		job.Output = res.Output
		job.ExitCode = res.ExitCode
	default:
		job.Status = StatusDone
		job.Output = res.Output
		job.ExitCode = 0
	}
	m.finished = append(m.finished, id)
	slog.Info("background job finished", "job", id, "status", job.Status, "exit", job.ExitCode)
}

// Check returns a snapshot of a single job without side effects.
func (m *Manager) Check(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("unknown job %s", id)
	}
	snapshot := *job
	return &snapshot, nil
}

// List returns snapshots of all known jobs in start order.
func (m *Manager) List() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		snapshot := *job
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Drain returns jobs that finished since the last drain, each exactly once
// across any number of drains, in completion order.
func (m *Manager) Drain() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Job
	for _, id := range m.finished {
		job, ok := m.jobs[id]
		if !ok {
			continue
		}
		job.drained = true
		snapshot := *job
		out = append(out, &snapshot)
	}
	m.finished = nil
	return out
}

// Evict removes finished jobs that have been drained, freeing their results.
// Running and undrained jobs are kept.
func (m *Manager) Evict() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, job := range m.jobs {
		if job.Status != StatusRunning && job.drained {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

// Wait blocks until all running jobs complete. Test helper.
func (m *Manager) Wait() { m.wg.Wait() }

// Render produces the CLI-facing job listing.
func Render(jobs []*Job) string {
	if len(jobs) == 0 {
		return "No background jobs."
	}
	var sb strings.Builder
	for i, job := range jobs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		command := job.Command
		if len(command) > 60 {
			command = command[:60] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s [%s] %s", job.ID, job.Status, command))
	}
	return sb.String()
}
