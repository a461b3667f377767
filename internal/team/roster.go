package team

import (
	"fmt"
	"sort"
	"time"

	"github.com/anuris-ai/anuris/internal/storage/dirstore"
)

// TeammateStatus is the lifecycle state of a roster entry.
type TeammateStatus string

const (
	StatusIdle              TeammateStatus = "idle"
	StatusActive            TeammateStatus = "active"
	StatusBlocked           TeammateStatus = "blocked"
	StatusShutdownRequested TeammateStatus = "shutdown_requested"
	StatusShutdownConfirmed TeammateStatus = "shutdown_confirmed"
)

// TeammateRecord is one roster entry. Entries are never removed: a teammate
// that confirmed shutdown stays on the roster as a tombstone so history and
// inbox files remain attributable.
type TeammateRecord struct {
	Name      string         `json:"name"`
	AgentType AgentType      `json:"agent_type"`
	Status    TeammateStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	LastSeen  time.Time      `json:"last_seen"`
}

// Roster is the file-backed teammate registry. One directory per teammate
// under the team dir, with a meta.json holding the record.
type Roster struct {
	ds *dirstore.DirStore
}

// NewRoster opens the roster rooted at baseDir.
func NewRoster(baseDir string) *Roster {
	return &Roster{ds: dirstore.New(baseDir, "teammate")}
}

// Register adds a teammate. Names are unique for all time: a tombstoned name
// cannot be reused, so transcripts stay unambiguous.
func (r *Roster) Register(name string, agentType AgentType) (*TeammateRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("register teammate: empty name")
	}
	if !ValidAgentType(agentType) {
		return nil, fmt.Errorf("register teammate %q: unknown agent type %q", name, agentType)
	}
	if err := r.ds.Acquire(); err != nil {
		return nil, err
	}
	defer r.ds.Release()

	var existing TeammateRecord
	if err := r.ds.ReadMeta(name, &existing); err == nil {
		return nil, fmt.Errorf("register teammate: %q already on roster", name)
	}
	now := time.Now().UTC()
	rec := &TeammateRecord{
		Name:      name,
		AgentType: agentType,
		Status:    StatusIdle,
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := r.ds.EnsureDir(name); err != nil {
		return nil, fmt.Errorf("register teammate %q: %w", name, err)
	}
	if err := r.ds.WriteMeta(name, rec); err != nil {
		return nil, fmt.Errorf("register teammate %q: %w", name, err)
	}
	return rec, nil
}

// Get returns the record for name, or dirstore.ErrNotFound.
func (r *Roster) Get(name string) (*TeammateRecord, error) {
	if err := r.ds.Acquire(); err != nil {
		return nil, err
	}
	defer r.ds.Release()
	return r.getLocked(name)
}

func (r *Roster) getLocked(name string) (*TeammateRecord, error) {
	var rec TeammateRecord
	if err := r.ds.ReadMeta(name, &rec); err != nil {
		return nil, fmt.Errorf("teammate %q: %w", name, err)
	}
	return &rec, nil
}

// SetStatus transitions a teammate and refreshes last_seen.
func (r *Roster) SetStatus(name string, status TeammateStatus) (*TeammateRecord, error) {
	if err := r.ds.Acquire(); err != nil {
		return nil, err
	}
	defer r.ds.Release()

	rec, err := r.getLocked(name)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusShutdownConfirmed && status != StatusShutdownConfirmed {
		return nil, fmt.Errorf("teammate %q: already shut down", name)
	}
	rec.Status = status
	rec.LastSeen = time.Now().UTC()
	if err := r.ds.WriteMeta(name, rec); err != nil {
		return nil, fmt.Errorf("teammate %q: %w", name, err)
	}
	return rec, nil
}

// Touch refreshes last_seen without changing status.
func (r *Roster) Touch(name string) error {
	if err := r.ds.Acquire(); err != nil {
		return err
	}
	defer r.ds.Release()

	rec, err := r.getLocked(name)
	if err != nil {
		return err
	}
	rec.LastSeen = time.Now().UTC()
	return r.ds.WriteMeta(name, rec)
}

// List returns all roster entries, tombstones included, ordered by creation
// time.
func (r *Roster) List() ([]*TeammateRecord, error) {
	if err := r.ds.Acquire(); err != nil {
		return nil, err
	}
	defer r.ds.Release()

	names, err := r.ds.ListDirs()
	if err != nil {
		return nil, err
	}
	out := make([]*TeammateRecord, 0, len(names))
	for _, name := range names {
		rec, err := r.getLocked(name)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Active returns entries that can still receive messages.
func (r *Roster) Active() ([]*TeammateRecord, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, rec := range all {
		if rec.Status != StatusShutdownConfirmed {
			out = append(out, rec)
		}
	}
	return out, nil
}
