package paxml

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Filesystem layout
const (
	FilesystemDirPermissions  = 0o755
	FilesystemFilePermissions = 0o644
	FilesystemVersionPrefix   = "v"
	FilesystemVersionSuffix   = ".yaml"
)

// Filesystem storage error messages
const (
	ErrMsgInvalidStorageRoot    = "storage root cannot be empty"
	ErrMsgPathTraversalDetected = "entity name escapes the storage root"
	ErrMsgInvalidEntityName     = "entity name is not a valid file name"
)

// FilesystemStorage keeps one YAML file per version:
//
//	<root>/
//	  <entity-name>/
//	    v1.yaml
//	    v2.yaml
type FilesystemStorage struct {
	mu     sync.RWMutex
	root   string
	closed bool
}

// FilesystemStorageDriver opens FilesystemStorage instances; the
// connection string is the root directory.
type FilesystemStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameFilesystem, &FilesystemStorageDriver{})
}

// Open creates a storage rooted at connectionString
func (d *FilesystemStorageDriver) Open(connectionString string) (EntityStorage, error) {
	return NewFilesystemStorage(connectionString)
}

// NewFilesystemStorage creates the root directory if needed
func NewFilesystemStorage(root string) (*FilesystemStorage, error) {
	if root == "" {
		return nil, &StorageError{Message: ErrMsgInvalidStorageRoot}
	}
	if err := os.MkdirAll(root, FilesystemDirPermissions); err != nil {
		return nil, &StorageError{Message: ErrMsgStorageIOFailed, Name: root, Cause: err}
	}
	return &FilesystemStorage{root: root}, nil
}

// Get returns the latest version of name
func (s *FilesystemStorage) Get(ctx context.Context, name string) (*StoredEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateEntityFileName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	versions, err := s.versions(name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, NewStoredEntityNotFoundError(name)
	}
	return s.load(name, versions[0])
}

// GetVersion returns one version of name
func (s *FilesystemStorage) GetVersion(ctx context.Context, name string, version int) (*StoredEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateEntityFileName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	return s.load(name, version)
}

// Save writes a new version file
func (s *FilesystemStorage) Save(ctx context.Context, e *StoredEntity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := prepareStored(e); err != nil {
		return err
	}
	if err := validateEntityFileName(e.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	dir := filepath.Join(s.root, e.Name)
	if err := os.MkdirAll(dir, FilesystemDirPermissions); err != nil {
		return &StorageError{Message: ErrMsgStorageIOFailed, Name: dir, Cause: err}
	}
	versions, err := s.versions(e.Name)
	if err != nil {
		return err
	}
	next := 1
	if len(versions) > 0 {
		next = versions[0] + 1
	}

	stored := copyStoredEntity(e)
	stamp(stored, next, time.Now())
	data, err := yaml.Marshal(stored)
	if err != nil {
		return &StorageError{Message: ErrMsgStorageIOFailed, Name: e.Name, Cause: err}
	}
	if err := os.WriteFile(s.file(e.Name, next), data, FilesystemFilePermissions); err != nil {
		return &StorageError{Message: ErrMsgStorageIOFailed, Name: e.Name, Version: next, Cause: err}
	}

	e.ID, e.Version, e.CreatedAt, e.UpdatedAt = stored.ID, stored.Version, stored.CreatedAt, stored.UpdatedAt
	return nil
}

// Delete removes the entity directory
func (s *FilesystemStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateEntityFileName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}
	dir := filepath.Join(s.root, name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewStoredEntityNotFoundError(name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return &StorageError{Message: ErrMsgStorageIOFailed, Name: name, Cause: err}
	}
	return nil
}

// List scans the root for entity directories
func (s *FilesystemStorage) List(ctx context.Context, query *EntityQuery) ([]*StoredEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &StorageError{Message: ErrMsgStorageIOFailed, Name: s.root, Cause: err}
	}

	var out []*StoredEntity
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		versions, err := s.versions(entry.Name())
		if err != nil {
			return nil, err
		}
		if len(versions) > 0 && (query == nil || !query.IncludeAllVersions) {
			versions = versions[:1]
		}
		for _, v := range versions {
			e, err := s.load(entry.Name(), v)
			if err != nil {
				return nil, err
			}
			if matchesQuery(e, query) {
				out = append(out, e)
			}
		}
	}
	return paginate(out, query), nil
}

// Exists reports whether name has any version file
func (s *FilesystemStorage) Exists(ctx context.Context, name string) (bool, error) {
	versions, err := s.ListVersions(ctx, name)
	if err != nil {
		return false, err
	}
	return len(versions) > 0, nil
}

// ListVersions returns the versions of name, newest first
func (s *FilesystemStorage) ListVersions(ctx context.Context, name string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateEntityFileName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	return s.versions(name)
}

// Close marks the storage closed
func (s *FilesystemStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FilesystemStorage) file(name string, version int) string {
	return filepath.Join(s.root, name, FilesystemVersionPrefix+strconv.Itoa(version)+FilesystemVersionSuffix)
}

func (s *FilesystemStorage) versions(name string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return []int{}, nil
		}
		return nil, &StorageError{Message: ErrMsgStorageIOFailed, Name: name, Cause: err}
	}

	var versions []int
	for _, entry := range entries {
		fn := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(fn, FilesystemVersionPrefix) || !strings.HasSuffix(fn, FilesystemVersionSuffix) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(fn, FilesystemVersionPrefix), FilesystemVersionSuffix))
		if err == nil && v > 0 {
			versions = append(versions, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	return versions, nil
}

func (s *FilesystemStorage) load(name string, version int) (*StoredEntity, error) {
	data, err := os.ReadFile(s.file(name, version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewStoredVersionNotFoundError(name, version)
		}
		return nil, &StorageError{Message: ErrMsgStorageIOFailed, Name: name, Version: version, Cause: err}
	}
	var e StoredEntity
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, &StorageError{Message: ErrMsgStorageIOFailed, Name: name, Version: version, Cause: err}
	}
	return &e, nil
}

// validateEntityFileName rejects names that are not a single path element
func validateEntityFileName(name string) error {
	if name == "" {
		return &StorageError{Message: ErrMsgInvalidEntityName}
	}
	if strings.Contains(name, "..") {
		return &StorageError{Message: ErrMsgPathTraversalDetected, Name: name}
	}
	if strings.ContainsAny(name, "/\\:*?\"<>|") {
		return &StorageError{Message: ErrMsgInvalidEntityName, Name: name}
	}
	return nil
}
