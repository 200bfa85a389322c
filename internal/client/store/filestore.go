package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File persists keys to a JSON file, rewritten atomically on every change.
type File struct {
	path string

	mu sync.Mutex
	m  map[string]string
}

func OpenFile(path string) (*File, error) {
	f := &File{path: path, m: map[string]string{}}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// fresh profile
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(b, &f.m); err != nil {
			// corrupt state file: start over rather than fail the session
			f.m = map[string]string{}
		}
	}
	return f, nil
}

func (f *File) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.m[key]
	return v, ok
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[key] = value
	return f.flushLocked()
}

func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, key)
	return f.flushLocked()
}

func (f *File) flushLocked() error {
	b, err := json.Marshal(f.m)
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
