package tasks

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anuris-ai/anuris/internal/storage/dirstore"
)

// Store persists tasks as directories with meta.json, one per task, guarded
// by the store's advisory file lock. Every mutation is durable before the
// call returns.
type Store struct {
	ds *dirstore.DirStore
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{ds: dirstore.New(baseDir, "task")}
}

// Create persists a new task. Dependencies must already exist, which keeps
// the dependency graph acyclic by construction: edges can only point at
// previously created tasks.
func (s *Store) Create(subject, description string, dependsOn []string) (*Task, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	if err := s.ds.Acquire(); err != nil {
		return nil, err
	}
	defer s.ds.Release()

	all, err := s.loadAllLocked()
	if err != nil {
		return nil, err
	}

	deps := dedupe(dependsOn)
	for _, dep := range deps {
		if _, ok := all[dep]; !ok {
			return nil, fmt.Errorf("dependency %s: %w: unknown task makes graph unverifiable", dep, ErrCycleDetected)
		}
	}

	maxSeq := 0
	for _, t := range all {
		if t.Seq > maxSeq {
			maxSeq = t.Seq
		}
	}

	now := time.Now()
	t := &Task{
		ID:          GenerateTaskID(),
		Seq:         maxSeq + 1,
		Subject:     subject,
		Description: strings.TrimSpace(description),
		Status:      StatusPending,
		DependsOn:   deps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	all[t.ID] = t
	deriveBlocked(t, all)

	if err := s.ds.EnsureDir(t.ID); err != nil {
		return nil, err
	}
	if err := s.ds.WriteMeta(t.ID, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get reads a single task. The blocked status is derived from its
// dependencies' current states.
func (s *Store) Get(id string) (*Task, error) {
	if err := s.ds.Acquire(); err != nil {
		return nil, err
	}
	defer s.ds.Release()

	all, err := s.loadAllLocked()
	if err != nil {
		return nil, err
	}
	t, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, dirstore.ErrNotFound)
	}
	deriveBlocked(t, all)
	return t, nil
}

// List returns tasks matching the filter in creation order.
func (s *Store) List(filter ListFilter) ([]*Task, error) {
	if err := s.ds.Acquire(); err != nil {
		return nil, err
	}
	defer s.ds.Release()

	all, err := s.loadAllLocked()
	if err != nil {
		return nil, err
	}

	var out []*Task
	for _, t := range all {
		deriveBlocked(t, all)
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Owner != "" && t.Owner != filter.Owner {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Update applies a partial mutation. Moving to in_progress or done while any
// dependency is not done fails with ErrDependencyUnmet; adding a dependency
// edge that closes a cycle fails with ErrCycleDetected. The write is atomic:
// a failed validation leaves the record untouched.
func (s *Store) Update(id string, upd Update) (*Task, error) {
	if err := s.ds.Acquire(); err != nil {
		return nil, err
	}
	defer s.ds.Release()

	all, err := s.loadAllLocked()
	if err != nil {
		return nil, err
	}
	t, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, dirstore.ErrNotFound)
	}

	if upd.ClearDeps {
		t.DependsOn = nil
	}
	if len(upd.AddDeps) > 0 {
		for _, dep := range upd.AddDeps {
			if _, ok := all[dep]; !ok {
				return nil, fmt.Errorf("dependency %s: %w", dep, dirstore.ErrNotFound)
			}
		}
		t.DependsOn = dedupe(append(t.DependsOn, upd.AddDeps...))
		if hasCycle(t.ID, all) {
			return nil, fmt.Errorf("task %s: %w", id, ErrCycleDetected)
		}
	}

	if upd.Status != "" {
		if !ValidStatus(upd.Status) {
			return nil, fmt.Errorf("invalid status %q", upd.Status)
		}
		if upd.Status == StatusInProgress || upd.Status == StatusDone {
			if unmet := unmetDeps(t, all); len(unmet) > 0 {
				return nil, fmt.Errorf("task %s blocked by %s: %w", id, strings.Join(unmet, ", "), ErrDependencyUnmet)
			}
		}
		t.Status = upd.Status
	}
	if upd.Owner != nil {
		t.Owner = strings.TrimSpace(*upd.Owner)
	}

	deriveBlocked(t, all)
	t.UpdatedAt = time.Now()
	if err := s.ds.WriteMeta(t.ID, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Claim atomically assigns an unblocked, unowned task to owner. A racing
// claim by another party fails with ErrAlreadyClaimed; a blocked task fails
// with ErrDependencyUnmet. Claiming only sets ownership — the claimer moves
// the task to in_progress as a separate step.
func (s *Store) Claim(id, owner string) (*Task, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}

	if err := s.ds.Acquire(); err != nil {
		return nil, err
	}
	defer s.ds.Release()

	all, err := s.loadAllLocked()
	if err != nil {
		return nil, err
	}
	t, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, dirstore.ErrNotFound)
	}

	if t.Owner != "" && t.Owner != owner {
		return nil, fmt.Errorf("task %s owned by %s: %w", id, t.Owner, ErrAlreadyClaimed)
	}
	if unmet := unmetDeps(t, all); len(unmet) > 0 {
		return nil, fmt.Errorf("task %s blocked by %s: %w", id, strings.Join(unmet, ", "), ErrDependencyUnmet)
	}
	if t.Status == StatusDone || t.Status == StatusCancelled {
		return nil, fmt.Errorf("task %s is %s: %w", id, t.Status, ErrAlreadyClaimed)
	}

	t.Owner = owner
	t.UpdatedAt = time.Now()
	if err := s.ds.WriteMeta(t.ID, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a task record. Tasks are never deleted implicitly.
func (s *Store) Delete(id string) error {
	if err := s.ds.Acquire(); err != nil {
		return err
	}
	defer s.ds.Release()
	return s.ds.RemoveDir(id)
}

// WithRetry runs fn, retrying with linear backoff while it reports
// ErrStoreBusy. Other errors pass through immediately.
func WithRetry(fn func() error) error {
	const attempts = 5
	var err error
	for i := 1; i <= attempts; i++ {
		err = fn()
		if err == nil || !errors.Is(err, dirstore.ErrStoreBusy) {
			return err
		}
		time.Sleep(time.Duration(i) * 50 * time.Millisecond)
	}
	return err
}

func (s *Store) loadAllLocked() (map[string]*Task, error) {
	ids, err := s.ds.ListDirs()
	if err != nil {
		return nil, err
	}
	all := make(map[string]*Task, len(ids))
	for _, id := range ids {
		var t Task
		if err := s.ds.ReadMeta(id, &t); err != nil {
			continue // skip corrupted records
		}
		all[t.ID] = &t
	}
	return all, nil
}

// unmetDeps returns the dependency ids that are not done.
func unmetDeps(t *Task, all map[string]*Task) []string {
	var unmet []string
	for _, dep := range t.DependsOn {
		d, ok := all[dep]
		if !ok || d.Status != StatusDone {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

// deriveBlocked flips pending<->blocked from the current dependency states.
// Statuses chosen by a caller (in_progress, done, cancelled) are left alone.
func deriveBlocked(t *Task, all map[string]*Task) {
	switch t.Status {
	case StatusPending, StatusBlocked:
		if len(unmetDeps(t, all)) > 0 {
			t.Status = StatusBlocked
		} else {
			t.Status = StatusPending
		}
	}
}

// hasCycle reports whether start can reach itself through dependency edges.
func hasCycle(start string, all map[string]*Task) bool {
	seen := map[string]bool{}
	var walk func(id string) bool
	walk = func(id string) bool {
		t, ok := all[id]
		if !ok {
			return false
		}
		for _, dep := range t.DependsOn {
			if dep == start {
				return true
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if walk(dep) {
				return true
			}
		}
		return false
	}
	return walk(start)
}

func dedupe(ids []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
