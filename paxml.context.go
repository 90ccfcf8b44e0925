package paxml

import (
	"context"
	"reflect"
	"sort"

	"github.com/maruel/natural"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// InternalKey identifies an engine-private object in a Context. Keys are
// compared by identity, so two keys created with the same name never collide
// and no script name can reach them.
type InternalKey struct {
	k *keyName
}

type keyName struct{ name string }

// NewInternalKey creates a new private key. The name is for diagnostics only.
func NewInternalKey(name string) InternalKey {
	return InternalKey{k: &keyName{name: name}}
}

// String returns the diagnostic name of the key
func (k InternalKey) String() string {
	if k.k == nil {
		return "<nil>"
	}
	return k.k.name
}

// rootState is shared by every Context of one chain
type rootState struct {
	processID  string
	globals    map[InternalKey]any
	stack      *Stack
	thread     *Thread
	closeables *closeables
	faultCtx   *Context
	engine     *Engine
	goctx      context.Context
	logger     *zap.Logger
}

// Context is the runtime scope of an executing entity. It holds script
// constants, engine-private internal objects and, through the root, the
// call stack and the ambient current-context handle.
//
// A Context chain belongs to a single goroutine and carries no locks.
type Context struct {
	parent *Context
	root   *Context
	shared *rootState
	depth  int

	entity    *Entity
	returning bool
	overwrite bool

	consts         map[string]any
	propertyConsts map[string]struct{}
	locals         map[InternalKey]any

	invocationResult any
}

// ContextOption configures a root Context
type ContextOption func(*rootState)

// WithProcessID sets the process label of the root context.
// By default a ULID is generated.
func WithProcessID(id string) ContextOption {
	return func(s *rootState) {
		if id != "" {
			s.processID = id
		}
	}
}

// WithGlobalInternal seeds a global internal object
func WithGlobalInternal(key InternalKey, value any) ContextOption {
	return func(s *rootState) {
		s.globals[key] = value
	}
}

// WithGoContext sets the context.Context used for blocking operations
// such as mutex acquisition.
func WithGoContext(ctx context.Context) ContextOption {
	return func(s *rootState) {
		if ctx != nil {
			s.goctx = ctx
		}
	}
}

// WithContextLogger sets the logger used by the chain
func WithContextLogger(logger *zap.Logger) ContextOption {
	return func(s *rootState) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func withEngine(e *Engine) ContextOption {
	return func(s *rootState) {
		s.engine = e
	}
}

// NewRootContext creates a root scope. Every property becomes a const of the
// root and is remembered as a property const.
func NewRootContext(props map[string]any, opts ...ContextOption) *Context {
	state := &rootState{
		processID:  ulid.Make().String(),
		globals:    make(map[InternalKey]any),
		stack:      &Stack{},
		closeables: &closeables{},
		goctx:      context.Background(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(state)
	}

	c := &Context{
		shared:         state,
		consts:         make(map[string]any, len(props)),
		propertyConsts: make(map[string]struct{}, len(props)),
		locals:         make(map[InternalKey]any),
	}
	c.root = c
	state.thread = &Thread{}

	for name, value := range props {
		c.consts[name] = value
		c.propertyConsts[name] = struct{}{}
	}
	return c
}

// NewChild creates a nested scope
func (c *Context) NewChild() *Context {
	return &Context{
		parent: c,
		root:   c.root,
		shared: c.shared,
		depth:  c.depth + 1,
		consts: make(map[string]any),
		locals: make(map[InternalKey]any),
	}
}

// NewEntityContext creates a nested scope owned by entity e
func (c *Context) NewEntityContext(e *Entity) *Context {
	child := c.NewChild()
	child.entity = e
	return child
}

// Parent returns the parent context, or nil for the root
func (c *Context) Parent() *Context { return c.parent }

// Root returns the root of the chain
func (c *Context) Root() *Context { return c.root }

// IsRoot reports whether c has no parent
func (c *Context) IsRoot() bool { return c.parent == nil }

// Depth returns the distance from the root
func (c *Context) Depth() int { return c.depth }

// ProcessID returns the process label shared by the chain
func (c *Context) ProcessID() string { return c.shared.processID }

// Logger returns the chain's logger
func (c *Context) Logger() *zap.Logger { return c.shared.logger }

// GoContext returns the context.Context used for blocking operations
func (c *Context) GoContext() context.Context { return c.shared.goctx }

// Entity returns the entity owning this context, nil for plain scopes
func (c *Context) Entity() *Entity { return c.entity }

// AddConst binds name locally. Rebinding a locally bound name fails unless
// the context is const-overwritable; remove the binding first.
func (c *Context) AddConst(name string, value any) error {
	if name == "" {
		return NewEmptyConstNameError()
	}
	if _, exists := c.consts[name]; exists && !c.overwrite {
		return NewConstConflictError(name)
	}
	c.consts[name] = value
	return nil
}

// AddGlobalConst binds name in the root context
func (c *Context) AddGlobalConst(name string, value any) error {
	return c.root.AddConst(name, value)
}

// SetConst binds name locally, overwriting any local binding.
// It returns the previous local value.
func (c *Context) SetConst(name string, value any) any {
	prev := c.consts[name]
	c.consts[name] = value
	return prev
}

// RemoveConst removes a local binding and returns its value
func (c *Context) RemoveConst(name string) (any, bool) {
	prev, ok := c.consts[name]
	if ok {
		delete(c.consts, name)
		delete(c.propertyConsts, name)
	}
	return prev, ok
}

func (c *Context) isPropertyConst(name string) bool {
	_, ok := c.propertyConsts[name]
	return ok
}

// Const looks name up locally and, if searchParent is set, through the
// parent chain. A binding to nil is reported as present.
func (c *Context) Const(name string, searchParent bool) (any, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if v, ok := cur.consts[name]; ok {
			return v, true
		}
		if !searchParent {
			break
		}
	}
	return nil, false
}

// HasConst reports whether name is bound, even to nil
func (c *Context) HasConst(name string, searchParent bool) bool {
	_, ok := c.Const(name, searchParent)
	return ok
}

// ConstNames returns the local const names in natural order
func (c *Context) ConstNames() []string {
	return sortedNames(c.consts)
}

// ConstMap returns the visible bindings. With mergeParents the chain is
// merged so inner bindings win; includeRoot controls whether the root
// context's bindings are part of the merge.
func (c *Context) ConstMap(mergeParents, includeRoot bool) map[string]any {
	var chain []*Context
	for cur := c; cur != nil; cur = cur.parent {
		if cur.IsRoot() && !includeRoot && cur != c {
			break
		}
		chain = append(chain, cur)
		if !mergeParents {
			break
		}
	}

	out := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].consts {
			out[k] = v
		}
	}
	return out
}

// FindConstName returns the name bound to value. Comparable values match by
// equality, maps, slices and pointers by identity.
func (c *Context) FindConstName(value any, searchParent bool) (string, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		for _, name := range cur.ConstNames() {
			if sameValue(cur.consts[name], value) {
				return name, true
			}
		}
		if !searchParent {
			break
		}
	}
	return "", false
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	// a statically comparable struct may still hold a slice in an interface field
	if va.Comparable() && vb.Comparable() {
		return va.Equal(vb)
	}
	switch va.Kind() {
	case reflect.Map, reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Func:
		return va.Pointer() == vb.Pointer()
	}
	return false
}

// SetConstOverwritable controls whether AddConst may rebind local names
func (c *Context) SetConstOverwritable(yes bool) { c.overwrite = yes }

// ConstOverwritable reports the local overwrite flag
func (c *Context) ConstOverwritable() bool { return c.overwrite }

// MarkPropertyConst records name as loaded from properties
func (c *Context) MarkPropertyConst(name string) {
	if c.propertyConsts == nil {
		c.propertyConsts = make(map[string]struct{})
	}
	c.propertyConsts[name] = struct{}{}
}

// PropertyConsts returns the names loaded from properties
func (c *Context) PropertyConsts(searchParent bool) []string {
	set := make(map[string]struct{})
	for cur := c; cur != nil; cur = cur.parent {
		for name := range cur.propertyConsts {
			set[name] = struct{}{}
		}
		if !searchParent {
			break
		}
	}
	return sortedNames(set)
}

// DefaultParameter returns the local "value" const, the implicit parameter
// of an invoked entity.
func (c *Context) DefaultParameter() any {
	v, _ := c.Const(DefaultParameterName, false)
	return v
}

// SetInternal stores an internal object locally or, if global, in the root's
// shared table. It returns the previous value.
func (c *Context) SetInternal(key InternalKey, value any, global bool) any {
	table := c.internalTable(global)
	prev := table[key]
	table[key] = value
	return prev
}

// Internal reads an internal object from the global table or from this
// context's own table.
func (c *Context) Internal(key InternalKey, global bool) (any, bool) {
	v, ok := c.internalTable(global)[key]
	return v, ok
}

// LocalInternal reads a local internal object, optionally searching parents
func (c *Context) LocalInternal(key InternalKey, searchParent bool) (any, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if v, ok := cur.locals[key]; ok {
			return v, true
		}
		if !searchParent {
			break
		}
	}
	return nil, false
}

// RemoveInternal removes an internal object and returns its value
func (c *Context) RemoveInternal(key InternalKey, global bool) (any, bool) {
	table := c.internalTable(global)
	v, ok := table[key]
	if ok {
		delete(table, key)
	}
	return v, ok
}

func (c *Context) internalTable(global bool) map[InternalKey]any {
	if global {
		return c.shared.globals
	}
	return c.locals
}

// Stack returns the call stack shared by the chain
func (c *Context) Stack() *Stack { return c.shared.stack }

// CurrentTag returns the innermost executing tag, nil if none
func (c *Context) CurrentTag() *Tag {
	f, ok := c.shared.stack.Top()
	if !ok {
		return nil
	}
	return f.TagNode()
}

// CurrentEntity returns the entity of the innermost executing tag
func (c *Context) CurrentEntity() *Entity {
	f, ok := c.shared.stack.Top()
	if !ok {
		return nil
	}
	return f.Entity
}

// FindContextForEntity walks up from c to the context owned by e
func (c *Context) FindContextForEntity(e *Entity) *Context {
	if e == nil {
		return nil
	}
	for cur := c; cur != nil; cur = cur.parent {
		if cur.entity == e {
			return cur
		}
	}
	return nil
}

// CurrentEntityContext returns the context owned by the current entity
func (c *Context) CurrentEntityContext() *Context {
	return c.FindContextForEntity(c.CurrentEntity())
}

// FindCallerContext returns the context of the entity that invoked the
// current one, or nil at the top level.
func (c *Context) FindCallerContext() *Context {
	owner := c.CurrentEntityContext()
	if owner == nil {
		return nil
	}
	for cur := owner.parent; cur != nil && !cur.IsRoot(); cur = cur.parent {
		if cur.entity != nil {
			return cur
		}
	}
	return nil
}

// FindCallerEntity returns the entity that invoked the current one
func (c *Context) FindCallerEntity() *Entity {
	if caller := c.FindCallerContext(); caller != nil {
		return caller.entity
	}
	return nil
}

// SetReturning marks the entity context as returning; remaining tags of
// the entity are skipped.
func (c *Context) SetReturning(yes bool) { c.returning = yes }

// Returning reports the returning flag
func (c *Context) Returning() bool { return c.returning }

// SetInvocationResult records the result of the last sub-invocation
func (c *Context) SetInvocationResult(v any) { c.invocationResult = v }

// InvocationResult returns the result of the last sub-invocation
func (c *Context) InvocationResult() any { return c.invocationResult }

// SetFaultContext records the context a fault originated in. Only the
// first call of a chain takes effect until the fault is cleared.
func (c *Context) SetFaultContext(origin *Context) {
	if c.shared.faultCtx == nil {
		c.shared.faultCtx = origin
	}
}

// ClearFaultContext forgets the recorded fault origin. The interpreter calls
// it when a tag completes without error although a fault was recorded while
// it ran.
func (c *Context) ClearFaultContext() { c.shared.faultCtx = nil }

// FaultContext returns the context the pending fault originated in, if any
func (c *Context) FaultContext() *Context { return c.shared.faultCtx }

// Lookup resolves a script name through the const chain
func (c *Context) Lookup(name string) (any, bool) {
	return c.Const(name, true)
}

// Provide asks the registered tag libraries for an extension object named
// name and caches a hit as a root const.
func (c *Context) Provide(name string) (any, bool) {
	v, ok := c.engine().provide(c, name)
	if !ok {
		return nil, false
	}
	c.root.SetConst(name, v)
	c.shared.logger.Debug(LogMsgProviderCached, zap.String(LogFieldName, name))
	return v, true
}

func (c *Context) engine() *Engine {
	if c.shared.engine == nil {
		c.shared.engine = defaultEngine()
	}
	return c.shared.engine
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return natural.Less(names[i], names[j]) })
	return names
}
