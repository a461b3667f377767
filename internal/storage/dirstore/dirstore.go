// Package dirstore provides primitives for directory-backed stores shared
// between agent processes. Each record gets its own subdirectory with a
// meta.json plus optional companion files. Mutations go through atomic
// tmp+rename writes guarded by an advisory file lock, so a lead process and
// its teammates can work against the same store concurrently.
package dirstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DirStore manages a flat collection of record directories under baseDir.
type DirStore struct {
	baseDir    string
	entityName string // for error messages: "task", "teammate"
	lock       *FileLock
}

// New creates a DirStore rooted at baseDir. The directory is created on
// first write, not here.
func New(baseDir, entityName string) *DirStore {
	return &DirStore{
		baseDir:    baseDir,
		entityName: entityName,
		lock:       NewFileLock(filepath.Join(baseDir, ".lock")),
	}
}

// Acquire takes the store's advisory lock. Returns ErrStoreBusy if the lock
// cannot be obtained within the acquisition bound.
func (ds *DirStore) Acquire() error { return ds.lock.Acquire() }

// Release drops the store's advisory lock.
func (ds *DirStore) Release() { ds.lock.Release() }

// Dir returns the directory path for a record ID.
func (ds *DirStore) Dir(id string) string {
	return filepath.Join(ds.baseDir, id)
}

// FilePath returns the path of a named file inside a record directory.
func (ds *DirStore) FilePath(id, name string) string {
	return filepath.Join(ds.baseDir, id, name)
}

// EnsureDir creates the record directory (and parents) if missing.
func (ds *DirStore) EnsureDir(id string) error {
	if err := os.MkdirAll(ds.Dir(id), 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", ds.entityName, err)
	}
	return nil
}

// RemoveDir removes a record directory and its contents.
func (ds *DirStore) RemoveDir(id string) error {
	return os.RemoveAll(ds.Dir(id))
}

// ListDirs returns the names of all record directories, sorted by name.
func (ds *DirStore) ListDirs() ([]string, error) {
	entries, err := os.ReadDir(ds.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %ss dir: %w", ds.entityName, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// WriteMeta atomically writes meta.json using a temp file + rename, so a
// crash mid-write never leaves a half-written record behind.
func (ds *DirStore) WriteMeta(id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s meta: %w", ds.entityName, err)
	}
	return ds.writeAtomic(ds.FilePath(id, "meta.json"), data)
}

// ReadMeta reads and unmarshals meta.json into out.
func (ds *DirStore) ReadMeta(id string, out any) error {
	data, err := os.ReadFile(ds.FilePath(id, "meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s not found: %s: %w", ds.entityName, id, ErrNotFound)
		}
		return fmt.Errorf("read %s meta: %w", ds.entityName, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s meta: %w", ds.entityName, err)
	}
	return nil
}

// AppendJSONL appends one JSON-encoded line to a named file under baseDir
// (not inside a record directory). Used for flat per-recipient queues.
func (ds *DirStore) AppendJSONL(filename string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filename, err)
	}
	if err := os.MkdirAll(ds.baseDir, 0o755); err != nil {
		return fmt.Errorf("create %ss dir: %w", ds.entityName, err)
	}

	f, err := os.OpenFile(filepath.Join(ds.baseDir, filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}

// WriteJSONL atomically rewrites a named file with one JSON line per item.
func WriteJSONL[T any](ds *DirStore, filename string, items []T) error {
	var buf []byte
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", filename, err)
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	if err := os.MkdirAll(ds.baseDir, 0o755); err != nil {
		return fmt.Errorf("create %ss dir: %w", ds.entityName, err)
	}
	return ds.writeAtomic(filepath.Join(ds.baseDir, filename), buf)
}

// LoadJSONL reads all JSON lines from a named file under baseDir,
// deserializing each into type T. Corrupted lines are skipped.
func LoadJSONL[T any](ds *DirStore, filename string) ([]T, error) {
	f, err := os.Open(filepath.Join(ds.baseDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	var items []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", filename, err)
	}
	return items, nil
}

func (ds *DirStore) writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s tmp: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
