package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/gofrs/flock"
)

const (
	// StateFileName is the JSON document holding every record.
	StateFileName = "state.json"

	// LockTimeout bounds how long a read or write waits for another process.
	LockTimeout = 2 * time.Second
)

// FileStore implements [models.KeyValueStore] as one JSON document guarded by a file lock.
//
// Each operation is a locked read-modify-write, so a token refresh in one process cannot interleave with a logout in another.
type FileStore struct {
	dir string
}

// NewFileStore creates a [FileStore] rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the full path to the state file.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, StateFileName)
}

func (s *FileStore) lockPath() string {
	return filepath.Join(s.dir, ".lock")
}

func (s *FileStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.withLock(func() error {
		all, err := s.load()
		if err != nil {
			return err
		}

		raw, ok := all[key]
		if !ok {
			return models.ErrNotFound
		}
		value = raw
		return nil
	})
	return value, err
}

func (s *FileStore) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %s is not JSON", key)
	}

	return s.withLock(func() error {
		all, err := s.load()
		if err != nil {
			return err
		}
		all[key] = json.RawMessage(value)
		return s.save(all)
	})
}

func (s *FileStore) Delete(key string) error {
	return s.withLock(func() error {
		all, err := s.load()
		if err != nil {
			return err
		}
		if _, ok := all[key]; !ok {
			return nil
		}
		delete(all, key)
		return s.save(all)
	})
}

// withLock runs fn while holding the exclusive directory lock.
//
// Unlike a cache, session state must not be written unlocked, so a lock timeout is an error.
func (s *FileStore) withLock(fn func() error) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	fl := flock.New(s.lockPath())
	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to lock state directory: %w", err)
	}
	if !locked {
		return fmt.Errorf("timed out waiting for state lock %s", s.lockPath())
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}

func (s *FileStore) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	all := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return all, nil
}

// save writes all atomically through a temp file and rename.
func (s *FileStore) save(all map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "state-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	dest := s.Path()
	if err := os.Rename(tmpPath, dest); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(dest)
			return os.Rename(tmpPath, dest)
		}
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
