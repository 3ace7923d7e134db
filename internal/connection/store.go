package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store persists sanitized ClusterConnection records. The caller is
// responsible for stripping secrets before Save; this layer never writes
// passwords because the model excludes them from serialization.
type Store interface {
	Load() ([]ClusterConnection, error)
	Save(records []ClusterConnection) error
}

// FileStore keeps records as a JSON array in a single file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the given file path. The file is
// created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads all records. A missing file yields an empty list, not an error.
func (s *FileStore) Load() ([]ClusterConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cluster config %s: %w", s.path, err)
	}
	var records []ClusterConnection
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse cluster config %s: %w", s.path, err)
	}
	return records, nil
}

// Save writes all records, replacing the previous contents atomically.
func (s *FileStore) Save(records []ClusterConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cluster config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write cluster config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace cluster config: %w", err)
	}
	return nil
}

// SecretStore holds per-cluster credentials outside the plain config store.
// The host environment supplies a real implementation (e.g. an OS keychain);
// MemorySecretStore serves sessions and tests.
type SecretStore interface {
	Get(clusterID string) (Credentials, bool)
	Store(clusterID string, creds Credentials)
	Delete(clusterID string)
}

// Credentials is the secret material for one cluster.
type Credentials struct {
	SASLPassword string
	SSLPassword  string
}

// MemorySecretStore is a process-lifetime SecretStore.
type MemorySecretStore struct {
	mu      sync.RWMutex
	secrets map[string]Credentials
}

func NewMemorySecretStore() *MemorySecretStore {
	return &MemorySecretStore{secrets: make(map[string]Credentials)}
}

func (m *MemorySecretStore) Get(clusterID string) (Credentials, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.secrets[clusterID]
	return c, ok
}

func (m *MemorySecretStore) Store(clusterID string, creds Credentials) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[clusterID] = creds
}

func (m *MemorySecretStore) Delete(clusterID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, clusterID)
}
