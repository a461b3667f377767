// Package tasks provides the durable, dependency-aware task store shared by
// the lead agent and its teammates.
package tasks

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDependencyUnmet is returned when a status change requires all
	// dependencies to be done and at least one is not.
	ErrDependencyUnmet = errors.New("dependency unmet")

	// ErrAlreadyClaimed is returned when a claim races against another owner.
	// Callers re-poll rather than treating this as fatal.
	ErrAlreadyClaimed = errors.New("task already claimed")

	// ErrCycleDetected is returned when a create or dependency edit would
	// introduce a dependency cycle.
	ErrCycleDetected = errors.New("dependency cycle detected")
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusBlocked, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Task is a durable unit of work. Blocked is derived: a task is blocked iff
// at least one dependency is not done.
type Task struct {
	ID          string    `json:"id"`
	Seq         int       `json:"seq"` // creation order
	Subject     string    `json:"subject"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	DependsOn   []string  `json:"depends_on,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GenerateTaskID returns a short unique task id.
func GenerateTaskID() string {
	return "t-" + strings.ReplaceAll(uuid.New().String()[:8], "-", "")
}

// Update describes a partial mutation applied through Store.Update.
type Update struct {
	Status    Status   // empty = unchanged
	Owner     *string  // nil = unchanged
	AddDeps   []string // dependency ids to add
	ClearDeps bool     // drop all dependency edges
}

// ListFilter narrows Store.List results.
type ListFilter struct {
	Status Status // empty = all
	Owner  string // empty = all
}

var statusMarkers = map[Status]string{
	StatusPending:    "[ ]",
	StatusInProgress: "[>]",
	StatusBlocked:    "[~]",
	StatusDone:       "[x]",
	StatusCancelled:  "[-]",
}

// Render produces the one-line view of a single task.
func (t *Task) Render() string {
	marker, ok := statusMarkers[t.Status]
	if !ok {
		marker = "[?]"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s: %s", marker, t.ID, t.Subject))
	if t.Owner != "" {
		sb.WriteString(" @" + t.Owner)
	}
	if len(t.DependsOn) > 0 && t.Status != StatusDone && t.Status != StatusCancelled {
		sb.WriteString(fmt.Sprintf(" (after: %s)", strings.Join(t.DependsOn, ", ")))
	}
	return sb.String()
}

// Render produces the CLI-facing board view, one task per line in creation
// order.
func Render(ts []*Task) string {
	if len(ts) == 0 {
		return "No tasks."
	}
	lines := make([]string, len(ts))
	for i, t := range ts {
		lines[i] = t.Render()
	}
	return strings.Join(lines, "\n")
}
