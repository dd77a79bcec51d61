// Package identity manages the stable per-device identity used to
// re-associate a client with its user record across sessions.
package identity

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/auxroom/auxroom/internal/config"
)

const identityFileName = "identity.toml"

// Identity is the persisted local identity. The ID never changes once
// generated; the display name may be updated.
type Identity struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Storage handles persisting the identity to disk.
type Storage struct {
	path string
}

// NewStorage creates identity storage at the specified path. If path is
// empty, the default location under the auxroom config directory is used.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		path = filepath.Join(dir, identityFileName)
	}
	return &Storage{path: path}, nil
}

// Load reads the identity from disk, returning nil if none is stored yet.
func (s *Storage) Load() (*Identity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}

	var id Identity
	if err := toml.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("failed to parse identity file: %w", err)
	}
	return &id, nil
}

// Save persists the identity with owner-only permissions.
func (s *Storage) Save(id *Identity) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(id); err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}
	return nil
}

// LoadOrCreate returns the stored identity, creating and persisting one when
// missing. A non-empty name overrides (and persists) the stored display name.
func (s *Storage) LoadOrCreate(name string) (*Identity, error) {
	id, err := s.Load()
	if err != nil {
		return nil, err
	}

	if id == nil {
		id = &Identity{ID: uuid.NewString()}
	}
	if name != "" && name != id.Name {
		id.Name = name
	}
	if id.Name == "" {
		id.Name = defaultName(id.ID)
	}

	if err := s.Save(id); err != nil {
		return nil, err
	}
	return id, nil
}

// defaultName derives a readable fallback name from the identity id.
func defaultName(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "listener-" + short
}
