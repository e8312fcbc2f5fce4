// Package file persists vault fields as one JSON document per vault.
//
// Writers serialise on an flock(2) held on <vaultID>.json.lock, so separate
// processes sharing a state directory never interleave read-modify-write
// cycles. Readers see either the previous or the next document because
// writes land through a rename.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"shareVault/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type document struct {
	Fields    storage.Fields `json:"fields"`
	UpdatedAt string         `json:"updated_at"`
}

// Store keeps the fields of a single vault in <dir>/<vaultID>.json.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(dir, vaultID string) (*Store, error) {
	if vaultID == "" {
		return nil, fmt.Errorf("vault id is required")
	}
	if filepath.Base(vaultID) != vaultID {
		return nil, fmt.Errorf("invalid vault id: %s", vaultID)
	}
	return &Store{path: filepath.Join(dir, vaultID+".json")}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Has(ctx context.Context, field storage.Field) (bool, error) {
	fields, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	return fields.Has(field), nil
}

func (s *Store) Get(ctx context.Context, field storage.Field) (string, error) {
	fields, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	return fields.Get(field)
}

func (s *Store) Load(ctx context.Context) (storage.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

func (s *Store) Set(ctx context.Context, entries ...storage.Entry) error {
	return s.Update(ctx, func(storage.Fields) ([]storage.Entry, error) {
		return entries, nil
	})
}

func (s *Store) Update(ctx context.Context, fn storage.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	current := make(storage.Fields, len(doc.Fields))
	for k, v := range doc.Fields {
		current[k] = v
	}

	entries, err := fn(current)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	if err := doc.Fields.Apply(entries...); err != nil {
		return err
	}
	return s.save(doc)
}

func (s *Store) lock() (func(), error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open state lock: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock state: %w", err)
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

func (s *Store) ensureDir() error {
	dir := filepath.Dir(s.path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return nil
}

func (s *Store) load() (document, error) {
	doc := document{Fields: make(storage.Fields)}

	stat, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, fmt.Errorf("stat state: %w", err)
	}
	if stat.IsDir() {
		return doc, fmt.Errorf("state path is a directory")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return doc, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse state: %w", err)
	}
	if doc.Fields == nil {
		doc.Fields = make(storage.Fields)
	}
	return doc, nil
}

func (s *Store) save(doc document) error {
	doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create state tmp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}
