package paxml

import (
	"context"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/itsatony/go-paxml/internal"
	"go.uber.org/zap"
)

// Engine is the entry point of the runtime. It owns the tag registry, the
// builtin expression functions, the named mutexes and the entities that
// call tags can reach. An Engine is safe for concurrent use; every Run
// gets a chain of its own.
type Engine struct {
	registry     *TagRegistry
	interp       *Interpreter
	funcs        *internal.FuncRegistry
	mutexes      *MutexRegistry
	mutexTimeout time.Duration
	logger       *zap.Logger
	output       io.Writer
	goctx        context.Context
	locator      EntityLocator
	storage      EntityStorage

	tagListeners    []TagListener
	entityListeners []EntityListener

	mu       sync.RWMutex
	entities map[string]*Entity
}

// New creates an Engine with the core library registered
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := config.registry
	if registry == nil {
		registry = NewTagRegistry(logger)
	}
	if !hasLibrary(registry, CoreLibraryName) {
		if err := registry.RegisterLibrary(CoreLibrary()); err != nil {
			return nil, err
		}
	}
	for _, lib := range config.libraries {
		if err := registry.RegisterLibrary(lib); err != nil {
			return nil, err
		}
	}

	mutexes := config.mutexes
	if mutexes == nil {
		mutexes = DefaultMutexRegistry()
	}
	output := config.output
	if output == nil {
		output = os.Stdout
	}
	locator := config.locator
	if locator == nil && config.storage != nil {
		locator = NewStorageLocator(config.storage, registry)
	}

	return &Engine{
		registry:        registry,
		interp:          NewInterpreter(logger),
		funcs:           internal.NewBuiltinFuncRegistry(),
		mutexes:         mutexes,
		mutexTimeout:    config.mutexTimeout,
		logger:          logger,
		output:          output,
		goctx:           config.goctx,
		locator:         locator,
		storage:         config.storage,
		tagListeners:    config.tagListeners,
		entityListeners: config.entityListeners,
		entities:        make(map[string]*Entity),
	}, nil
}

// MustNew creates an Engine and panics on error
func MustNew(opts ...Option) *Engine {
	e, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

var (
	defaultEngineOnce sync.Once
	defaultEngineInst *Engine
)

// defaultEngine backs contexts created with NewRootContext directly
func defaultEngine() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngineInst = MustNew()
	})
	return defaultEngineInst
}

func hasLibrary(r *TagRegistry, name string) bool {
	for _, lib := range r.Libraries() {
		if lib.Name() == name {
			return true
		}
	}
	return false
}

// Registry returns the tag registry entities are built against
func (e *Engine) Registry() *TagRegistry { return e.registry }

// Logger returns the engine logger
func (e *Engine) Logger() *zap.Logger { return e.logger }

// Mutexes returns the named mutex registry
func (e *Engine) Mutexes() *MutexRegistry { return e.mutexes }

// Storage returns the configured storage, nil if none
func (e *Engine) Storage() EntityStorage { return e.storage }

// RegisterTag adds a single tag kind
func (e *Engine) RegisterTag(desc TagDescriptor) error {
	return e.registry.Register(desc)
}

// MustRegisterTag adds a tag kind and panics on error
func (e *Engine) MustRegisterTag(desc TagDescriptor) {
	e.registry.MustRegister(desc)
}

// RegisterLibrary adds a tag library
func (e *Engine) RegisterLibrary(lib TagLibrary) error {
	return e.registry.RegisterLibrary(lib)
}

// RegisterFunc adds a builtin expression function
func (e *Engine) RegisterFunc(name string, minArgs, maxArgs int, fn func(args []any) (any, error)) error {
	return e.funcs.Register(&internal.Func{Name: name, MinArgs: minArgs, MaxArgs: maxArgs, Fn: fn})
}

// Add makes an entity reachable by name. Adding a name twice is an error.
func (e *Engine) Add(entity *Entity) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.entities[entity.Name()]; exists {
		return NewEntityExistsError(entity.Name())
	}
	e.entities[entity.Name()] = entity
	return nil
}

// AddDocument parses a YAML stream and adds every entity in it
func (e *Engine) AddDocument(data []byte) ([]*Entity, error) {
	entities, err := ParseDocuments(data, e.registry)
	if err != nil {
		return nil, err
	}
	for _, entity := range entities {
		if err := e.Add(entity); err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// Entity returns an added entity
func (e *Engine) Entity(name string) (*Entity, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entity, ok := e.entities[name]
	return entity, ok
}

// Entities returns the names of the added entities, sorted
func (e *Engine) Entities() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.entities))
	for name := range e.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Locate finds an entity: added entities first, then the locator
func (e *Engine) Locate(ctx context.Context, name string) (*Entity, error) {
	if entity, ok := e.Entity(name); ok {
		return entity, nil
	}
	if e.locator == nil {
		return nil, NewEntityNotFoundError(name)
	}
	return e.locator.Locate(ctx, name)
}

// SaveEntity writes entity to the configured storage as a new version
func (e *Engine) SaveEntity(ctx context.Context, entity *Entity, metadata map[string]string) (*StoredEntity, error) {
	if e.storage == nil {
		return nil, &StorageError{Message: ErrMsgNoStorage, Name: entity.Name()}
	}
	source, err := EncodeDocument(DocumentOf(entity))
	if err != nil {
		return nil, err
	}
	stored := &StoredEntity{Name: entity.Name(), Source: string(source), Metadata: metadata}
	if err := e.storage.Save(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// NewContext creates a root context bound to the engine. Engine listeners
// are installed on the new chain.
func (e *Engine) NewContext(props map[string]any, opts ...ContextOption) *Context {
	base := []ContextOption{
		withEngine(e),
		WithContextLogger(e.logger),
		WithGoContext(e.goctx),
	}
	c := NewRootContext(props, append(base, opts...)...)
	for _, l := range e.tagListeners {
		c.AddTagListener(l)
	}
	for _, l := range e.entityListeners {
		c.AddEntityListener(l)
	}
	return c
}

// Run executes the named entity in a new chain seeded with props. The
// chain's blocking operations observe ctx.
func (e *Engine) Run(ctx context.Context, name string, props map[string]any) (any, error) {
	entity, err := e.Locate(ctx, name)
	if err != nil {
		return nil, err
	}
	root := e.NewContext(props, WithGoContext(ctx))
	return entity.Execute(root)
}

func (e *Engine) provide(ctx *Context, name string) (any, bool) {
	return e.registry.provide(ctx, name)
}
