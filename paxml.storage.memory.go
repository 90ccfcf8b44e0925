package paxml

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps entity documents in process memory. It is meant for
// tests and embedding; nothing survives the process.
type MemoryStorage struct {
	mu       sync.RWMutex
	entities map[string][]*StoredEntity // newest version first
	closed   bool
}

// MemoryStorageDriver opens MemoryStorage instances
type MemoryStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameMemory, &MemoryStorageDriver{})
}

// Open ignores the connection string
func (d *MemoryStorageDriver) Open(string) (EntityStorage, error) {
	return NewMemoryStorage(), nil
}

// NewMemoryStorage creates an empty storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entities: make(map[string][]*StoredEntity)}
}

// Get returns the latest version of name
func (s *MemoryStorage) Get(ctx context.Context, name string) (*StoredEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	versions := s.entities[name]
	if len(versions) == 0 {
		return nil, NewStoredEntityNotFoundError(name)
	}
	return copyStoredEntity(versions[0]), nil
}

// GetVersion returns one version of name
func (s *MemoryStorage) GetVersion(ctx context.Context, name string, version int) (*StoredEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	for _, e := range s.entities[name] {
		if e.Version == version {
			return copyStoredEntity(e), nil
		}
	}
	return nil, NewStoredVersionNotFoundError(name, version)
}

// Save stores a new version of e
func (s *MemoryStorage) Save(ctx context.Context, e *StoredEntity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := prepareStored(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	versions := s.entities[e.Name]
	next := 1
	if len(versions) > 0 {
		next = versions[0].Version + 1
	}
	stamp(e, next, time.Now())
	s.entities[e.Name] = append([]*StoredEntity{copyStoredEntity(e)}, versions...)
	return nil
}

// Delete removes every version of name
func (s *MemoryStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}
	if _, ok := s.entities[name]; !ok {
		return NewStoredEntityNotFoundError(name)
	}
	delete(s.entities, name)
	return nil
}

// List returns the entities matching query
func (s *MemoryStorage) List(ctx context.Context, query *EntityQuery) ([]*StoredEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	var out []*StoredEntity
	for _, versions := range s.entities {
		for i, e := range versions {
			if i > 0 && (query == nil || !query.IncludeAllVersions) {
				break
			}
			if matchesQuery(e, query) {
				out = append(out, copyStoredEntity(e))
			}
		}
	}
	return paginate(out, query), nil
}

// Exists reports whether name has any version
func (s *MemoryStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}
	return len(s.entities[name]) > 0, nil
}

// ListVersions returns the versions of name, newest first
func (s *MemoryStorage) ListVersions(ctx context.Context, name string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	versions := s.entities[name]
	out := make([]int, len(versions))
	for i, e := range versions {
		out[i] = e.Version
	}
	return out, nil
}

// Close releases the stored data
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.entities = nil
	return nil
}
