package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goliatone/go-fintrack/authstate"
	"gopkg.in/yaml.v3"
)

// ErrNoSession is returned by Load when nothing is persisted.
var ErrNoSession = errors.New("no persisted session")

// StoredSession is what survives between runs.
type StoredSession struct {
	Token   string           `yaml:"token"`
	User    authstate.Record `yaml:"user"`
	SavedAt time.Time        `yaml:"saved_at"`
}

// SessionStore persists the signed in session.
type SessionStore interface {
	Load() (*StoredSession, error)
	Save(session *StoredSession) error
	Clear() error
}

// FileSessionStore keeps the session in a YAML file readable only by its
// owner.
type FileSessionStore struct {
	path string
}

// NewFileSessionStore stores the session at path.
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

// Path returns the file location.
func (s *FileSessionStore) Path() string {
	return s.path
}

// Load reads the file.
func (s *FileSessionStore) Load() (*StoredSession, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var stored StoredSession
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if stored.Token == "" {
		return nil, ErrNoSession
	}
	return &stored, nil
}

// Save replaces the file atomically.
func (s *FileSessionStore) Save(session *StoredSession) error {
	if session.SavedAt.IsZero() {
		session.SavedAt = time.Now().UTC()
	}

	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// Clear removes the file. A missing file is not an error.
func (s *FileSessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

var _ SessionStore = (*FileSessionStore)(nil)
