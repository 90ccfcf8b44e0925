package paxml

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StoredEntity is a versioned entity document kept in a storage backend
type StoredEntity struct {
	// ID identifies this version (a UUID)
	ID string `json:"id" yaml:"id"`

	// Name is the entity name used by call targets
	Name string `json:"name" yaml:"name"`

	// Source is the YAML entity document
	Source string `json:"source" yaml:"source"`

	// Version starts at 1 and grows with every save of the same name
	Version int `json:"version" yaml:"version"`

	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Tags      []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" yaml:"updated_at"`
}

// EntityQuery filters List results
type EntityQuery struct {
	// NamePrefix keeps names starting with the prefix
	NamePrefix string

	// Tags keeps entities carrying all of the tags
	Tags []string

	// Limit caps the result count, 0 means no limit
	Limit int

	Offset int

	// IncludeAllVersions lists every version instead of the latest only
	IncludeAllVersions bool
}

// EntityStorage is a pluggable backend for entity documents.
// Implementations must be safe for concurrent use.
type EntityStorage interface {
	// Get returns the latest version of name
	Get(ctx context.Context, name string) (*StoredEntity, error)

	// GetVersion returns one version of name
	GetVersion(ctx context.Context, name string, version int) (*StoredEntity, error)

	// Save stores a new version. ID, Version, CreatedAt and UpdatedAt are
	// assigned by the storage and written back to e.
	Save(ctx context.Context, e *StoredEntity) error

	// Delete removes every version of name
	Delete(ctx context.Context, name string) error

	// List returns matches ordered by name, then version descending
	List(ctx context.Context, query *EntityQuery) ([]*StoredEntity, error)

	Exists(ctx context.Context, name string) (bool, error)

	// ListVersions returns the versions of name, newest first
	ListVersions(ctx context.Context, name string) ([]int, error)

	Close() error
}

// StorageDriver opens storage instances. Drivers register in init().
type StorageDriver interface {
	Open(connectionString string) (EntityStorage, error)
}

// Storage driver names
const (
	StorageDriverNameMemory     = "memory"
	StorageDriverNameFilesystem = "filesystem"
	StorageDriverNamePostgres   = "postgres"
)

// Storage error messages
const (
	ErrMsgNilStorageDriver        = "storage driver is nil"
	ErrMsgDriverAlreadyRegistered = "storage driver already registered"
	ErrMsgStorageClosed           = "storage is closed"
	ErrMsgStoredEntityNotFound    = "stored entity not found"
	ErrMsgStoredVersionNotFound   = "stored entity version not found"
	ErrMsgInvalidStoredEntity     = "stored entity needs a name and a source"
	ErrMsgStorageIOFailed         = "storage I/O failed"
	ErrMsgNoStorage               = "no entity storage configured"
)

var (
	storageDriversMu sync.RWMutex
	storageDrivers   = make(map[string]StorageDriver)
)

// ErrStoredEntityNotFound is matched with errors.Is on storage lookups
// that found nothing.
var ErrStoredEntityNotFound = errors.New(ErrMsgStoredEntityNotFound)

// RegisterStorageDriver makes a driver available to OpenStorage.
// It panics on a nil driver or a duplicate name.
func RegisterStorageDriver(name string, driver StorageDriver) {
	storageDriversMu.Lock()
	defer storageDriversMu.Unlock()

	if driver == nil {
		panic(ErrMsgNilStorageDriver)
	}
	if _, exists := storageDrivers[name]; exists {
		panic(ErrMsgDriverAlreadyRegistered + ": " + name)
	}
	storageDrivers[name] = driver
}

// OpenStorage opens a storage with the named driver:
//
//	storage, err := paxml.OpenStorage("memory", "")
//	storage, err := paxml.OpenStorage("filesystem", "/var/lib/paxml")
func OpenStorage(driverName, connectionString string) (EntityStorage, error) {
	storageDriversMu.RLock()
	driver, ok := storageDrivers[driverName]
	storageDriversMu.RUnlock()

	if !ok {
		return nil, &StorageError{Message: ErrMsgUnknownStorageType, Name: driverName}
	}
	return driver.Open(connectionString)
}

// ListStorageDrivers returns the registered driver names, sorted
func ListStorageDrivers() []string {
	storageDriversMu.RLock()
	defer storageDriversMu.RUnlock()

	names := make([]string, 0, len(storageDrivers))
	for name := range storageDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StorageError is a storage failure
type StorageError struct {
	Message string
	Name    string
	Version int
	Cause   error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	msg := e.Message
	if e.Name != "" {
		msg += ": " + e.Name
		if e.Version > 0 {
			msg += " v" + strconv.Itoa(e.Version)
		}
	}
	if e.Cause != nil && !errors.Is(e.Cause, ErrStoredEntityNotFound) {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStoredEntityNotFoundError reports a missing name
func NewStoredEntityNotFoundError(name string) error {
	return &StorageError{Message: ErrMsgStoredEntityNotFound, Name: name, Cause: ErrStoredEntityNotFound}
}

// NewStoredVersionNotFoundError reports a missing version
func NewStoredVersionNotFoundError(name string, version int) error {
	return &StorageError{Message: ErrMsgStoredVersionNotFound, Name: name, Version: version, Cause: ErrStoredEntityNotFound}
}

// NewStorageClosedError reports use after Close
func NewStorageClosedError() error {
	return &StorageError{Message: ErrMsgStorageClosed}
}

// prepareStored validates e before a save; a missing name is taken from
// the document source.
func prepareStored(e *StoredEntity) error {
	if e == nil || e.Source == "" {
		return &StorageError{Message: ErrMsgInvalidStoredEntity}
	}
	if e.Name == "" {
		e.Name = documentName(e.Source)
	}
	if e.Name == "" {
		return &StorageError{Message: ErrMsgInvalidStoredEntity}
	}
	return nil
}

// stamp assigns the storage-owned fields of a new version
func stamp(e *StoredEntity, version int, now time.Time) {
	e.ID = uuid.NewString()
	e.Version = version
	e.CreatedAt = now
	e.UpdatedAt = now
}

func copyStoredEntity(e *StoredEntity) *StoredEntity {
	if e == nil {
		return nil
	}
	c := *e
	if e.Metadata != nil {
		c.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	c.Tags = append([]string(nil), e.Tags...)
	return &c
}

// matchesQuery applies the name and tag filters of q
func matchesQuery(e *StoredEntity, q *EntityQuery) bool {
	if q == nil {
		return true
	}
	if !strings.HasPrefix(e.Name, q.NamePrefix) {
		return false
	}
	for _, want := range q.Tags {
		found := false
		for _, have := range e.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// paginate sorts by name and version descending, then applies offset and limit
func paginate(items []*StoredEntity, q *EntityQuery) []*StoredEntity {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Version > items[j].Version
	})
	if q == nil {
		return items
	}
	if q.Offset > 0 {
		if q.Offset >= len(items) {
			return nil
		}
		items = items[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(items) {
		items = items[:q.Limit]
	}
	return items
}
