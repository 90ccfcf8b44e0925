package paxml

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Behavior is the execution logic of a tag kind
type Behavior interface {
	Execute(ctx *Context, tag *Tag) (any, error)
}

// BehaviorFunc adapts a function to Behavior
type BehaviorFunc func(ctx *Context, tag *Tag) (any, error)

// Execute calls f
func (f BehaviorFunc) Execute(ctx *Context, tag *Tag) (any, error) {
	return f(ctx, tag)
}

// NotExecutedHandler is called when a tag's condition fails
type NotExecutedHandler interface {
	OnNotExecuted(ctx *Context, tag *Tag) error
}

// BeforeExecuteHandler is called after the frame is pushed and before the
// condition is evaluated.
type BeforeExecuteHandler interface {
	BeforeExecute(ctx *Context, tag *Tag) error
}

// Validator checks a tag's static shape when its entity is built
type Validator interface {
	Validate(tag *Tag) error
}

// EntityInvoker marks behaviors that transfer control to another entity.
// Their frames always appear in call paths.
type EntityInvoker interface {
	InvokesEntity()
}

// TagDescriptor describes a tag kind
type TagDescriptor struct {
	Name string
	New  func() Behavior

	// IfAttr and UnlessAttr name the condition attributes. An empty name
	// disables that condition for the tag kind.
	IfAttr     string
	UnlessAttr string

	SupportsID bool
}

// Conditional reports whether the tag kind evaluates any condition
func (d *TagDescriptor) Conditional() bool {
	return d.IfAttr != "" || d.UnlessAttr != ""
}

// TagLibrary contributes tag kinds and extension objects for expressions
type TagLibrary interface {
	Name() string
	Tags() []TagDescriptor
	// Functions returns the extension object bound to name for ctx's chain
	Functions(ctx *Context, name string) (any, bool)
}

// TagRegistry maps tag names to descriptors
type TagRegistry struct {
	mu        sync.RWMutex
	tags      map[string]*TagDescriptor
	owners    map[string]string
	libraries []TagLibrary
	logger    *zap.Logger
}

// NewTagRegistry creates an empty registry
func NewTagRegistry(logger *zap.Logger) *TagRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagRegistry{
		tags:   make(map[string]*TagDescriptor),
		owners: make(map[string]string),
		logger: logger,
	}
}

// Register adds a tag kind. Registering a name twice is an error.
func (r *TagRegistry) Register(desc TagDescriptor) error {
	return r.register(desc, "")
}

func (r *TagRegistry) register(desc TagDescriptor, library string) error {
	if desc.Name == "" || desc.New == nil {
		return NewBuildError(ErrMsgInvalidTagDesc, desc.Name, 0)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tags[desc.Name]; exists {
		r.logger.Warn(LogMsgLibraryConflict,
			zap.String(LogFieldTag, desc.Name),
			zap.String(LogFieldLibrary, r.owners[desc.Name]))
		return NewTagExistsError(desc.Name)
	}
	d := desc
	r.tags[desc.Name] = &d
	r.owners[desc.Name] = library
	return nil
}

// MustRegister adds a tag kind and panics on error
func (r *TagRegistry) MustRegister(desc TagDescriptor) {
	if err := r.Register(desc); err != nil {
		panic(err)
	}
}

// RegisterLibrary adds every tag of lib and makes its extension objects
// available to expressions. Libraries are consulted in registration order.
func (r *TagRegistry) RegisterLibrary(lib TagLibrary) error {
	r.mu.RLock()
	for _, existing := range r.libraries {
		if existing.Name() == lib.Name() {
			r.mu.RUnlock()
			return NewLibraryExistsError(lib.Name())
		}
	}
	r.mu.RUnlock()

	for _, desc := range lib.Tags() {
		if err := r.register(desc, lib.Name()); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.libraries = append(r.libraries, lib)
	r.mu.Unlock()
	return nil
}

// Lookup returns the descriptor of a tag kind
func (r *TagRegistry) Lookup(name string) (*TagDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.tags[name]
	return d, ok
}

// Has reports whether a tag kind is registered
func (r *TagRegistry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// List returns the registered tag names, sorted
func (r *TagRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tags))
	for name := range r.tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tag kinds
func (r *TagRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tags)
}

// Libraries returns the registered libraries in registration order
func (r *TagRegistry) Libraries() []TagLibrary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]TagLibrary(nil), r.libraries...)
}

func (r *TagRegistry) provide(ctx *Context, name string) (any, bool) {
	for _, lib := range r.Libraries() {
		if v, ok := lib.Functions(ctx, name); ok {
			return v, true
		}
	}
	return nil, false
}
