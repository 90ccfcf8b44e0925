package paxml

import (
	"context"
	"errors"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// EntityLocator finds the entity a call tag names
type EntityLocator interface {
	Locate(ctx context.Context, name string) (*Entity, error)
}

// EntityLocatorFunc adapts a function to EntityLocator
type EntityLocatorFunc func(ctx context.Context, name string) (*Entity, error)

// Locate calls f
func (f EntityLocatorFunc) Locate(ctx context.Context, name string) (*Entity, error) {
	return f(ctx, name)
}

// StorageLocator loads entities from storage and builds them against a
// registry. Built entities are cached per stored version ID, so a newly
// saved version is picked up on the next lookup.
type StorageLocator struct {
	storage  EntityStorage
	registry *TagRegistry
	built    cmap.ConcurrentMap[string, *Entity]
}

// NewStorageLocator creates a locator over storage
func NewStorageLocator(storage EntityStorage, registry *TagRegistry) *StorageLocator {
	return &StorageLocator{
		storage:  storage,
		registry: registry,
		built:    cmap.New[*Entity](),
	}
}

// Locate implements EntityLocator
func (l *StorageLocator) Locate(ctx context.Context, name string) (*Entity, error) {
	stored, err := l.storage.Get(ctx, name)
	if errors.Is(err, ErrStoredEntityNotFound) {
		return nil, NewEntityNotFoundError(name)
	}
	if err != nil {
		return nil, err
	}
	if e, ok := l.built.Get(stored.ID); ok {
		return e, nil
	}

	e, err := ParseDocument([]byte(stored.Source), l.registry)
	if err != nil {
		return nil, err
	}
	l.built.Set(stored.ID, e)
	return e, nil
}
