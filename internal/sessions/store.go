package sessions

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/anuris-ai/anuris/internal/storage/dirstore"
)

const (
	turnsFile       = "turns.jsonl"
	compactionsFile = "compactions.jsonl"
)

// Store persists sessions as directories with meta.json, turns.jsonl and
// compactions.jsonl, guarded by the store's advisory file lock.
type Store struct {
	ds *dirstore.DirStore
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{ds: dirstore.New(baseDir, "session")}
}

func generateSessionID() string {
	return "sess-" + uuid.NewString()[:8]
}

// Create initialises a new session directory with meta.json.
func (s *Store) Create(title, model string) (*Session, error) {
	if err := s.ds.Acquire(); err != nil {
		return nil, err
	}
	defer s.ds.Release()

	now := time.Now().UTC()
	sess := &Session{
		ID:        generateSessionID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    SessionActive,
		Model:     model,
	}
	if err := s.ds.EnsureDir(sess.ID); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.ds.WriteMeta(sess.ID, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Get reads session metadata by ID.
func (s *Store) Get(id string) (*Session, error) {
	if err := s.ds.Acquire(); err != nil {
		return nil, err
	}
	defer s.ds.Release()

	var sess Session
	if err := s.ds.ReadMeta(id, &sess); err != nil {
		return nil, fmt.Errorf("session %q: %w", id, err)
	}
	return &sess, nil
}

// List returns all sessions, most recently updated first.
func (s *Store) List() ([]*Session, error) {
	if err := s.ds.Acquire(); err != nil {
		return nil, err
	}
	defer s.ds.Release()

	ids, err := s.ds.ListDirs()
	if err != nil {
		return nil, err
	}
	var out []*Session
	for _, id := range ids {
		var sess Session
		if err := s.ds.ReadMeta(id, &sess); err != nil {
			continue
		}
		out = append(out, &sess)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// UpdateMeta atomically rewrites a session's meta.json.
func (s *Store) UpdateMeta(sess *Session) error {
	if err := s.ds.Acquire(); err != nil {
		return err
	}
	defer s.ds.Release()

	sess.UpdatedAt = time.Now().UTC()
	return s.ds.WriteMeta(sess.ID, sess)
}

// Close marks a session as closed.
func (s *Store) Close(id string) error {
	if err := s.ds.Acquire(); err != nil {
		return err
	}
	defer s.ds.Release()

	var sess Session
	if err := s.ds.ReadMeta(id, &sess); err != nil {
		return fmt.Errorf("close session %q: %w", id, err)
	}
	sess.Status = SessionClosed
	sess.UpdatedAt = time.Now().UTC()
	return s.ds.WriteMeta(id, &sess)
}

// AppendTurn appends one turn to the session's log and bumps the count.
// The log is append-only: compaction rewrites the in-memory context, never
// this file.
func (s *Store) AppendTurn(id string, turn Turn) error {
	if err := s.ds.Acquire(); err != nil {
		return err
	}
	defer s.ds.Release()

	var sess Session
	if err := s.ds.ReadMeta(id, &sess); err != nil {
		return fmt.Errorf("append turn to %q: %w", id, err)
	}
	if err := s.ds.AppendJSONL(filepath.Join(id, turnsFile), turn); err != nil {
		return fmt.Errorf("append turn to %q: %w", id, err)
	}
	sess.TurnCount++
	sess.UpdatedAt = time.Now().UTC()
	return s.ds.WriteMeta(id, &sess)
}

// LoadTurns returns the full turn log for a session.
func (s *Store) LoadTurns(id string) ([]Turn, error) {
	if err := s.ds.Acquire(); err != nil {
		return nil, err
	}
	defer s.ds.Release()
	return dirstore.LoadJSONL[Turn](s.ds, filepath.Join(id, turnsFile))
}

// RecordCompaction appends a compaction snapshot and bumps the counter.
func (s *Store) RecordCompaction(id string, snap CompactionSnapshot) error {
	if err := s.ds.Acquire(); err != nil {
		return err
	}
	defer s.ds.Release()

	var sess Session
	if err := s.ds.ReadMeta(id, &sess); err != nil {
		return fmt.Errorf("record compaction for %q: %w", id, err)
	}
	if snap.At.IsZero() {
		snap.At = time.Now().UTC()
	}
	if err := s.ds.AppendJSONL(filepath.Join(id, compactionsFile), snap); err != nil {
		return fmt.Errorf("record compaction for %q: %w", id, err)
	}
	sess.Compactions++
	sess.UpdatedAt = time.Now().UTC()
	return s.ds.WriteMeta(id, &sess)
}

// LoadCompactions returns the compaction history for a session.
func (s *Store) LoadCompactions(id string) ([]CompactionSnapshot, error) {
	if err := s.ds.Acquire(); err != nil {
		return nil, err
	}
	defer s.ds.Release()
	return dirstore.LoadJSONL[CompactionSnapshot](s.ds, filepath.Join(id, compactionsFile))
}

// AddUsage accumulates token usage onto the session metadata.
func (s *Store) AddUsage(id string, input, output int) error {
	if err := s.ds.Acquire(); err != nil {
		return err
	}
	defer s.ds.Release()

	var sess Session
	if err := s.ds.ReadMeta(id, &sess); err != nil {
		return fmt.Errorf("add usage to %q: %w", id, err)
	}
	sess.TokenUsage.Input += input
	sess.TokenUsage.Output += output
	sess.UpdatedAt = time.Now().UTC()
	return s.ds.WriteMeta(id, &sess)
}
