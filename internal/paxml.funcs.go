package internal

import (
	"fmt"
	"sort"
	"sync"
)

// Func represents a callable function in expressions
type Func struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for variadic
	Fn      func(args []any) (any, error)
}

// FuncRegistry is a named set of functions. The builtin registry serves plain
// calls; extension namespaces (util.x) are registries too since FuncRegistry
// implements Callable.
type FuncRegistry struct {
	name  string
	funcs map[string]*Func
	mu    sync.RWMutex
}

// NewFuncRegistry creates an unnamed function registry
func NewFuncRegistry() *FuncRegistry {
	return NewNamedFuncRegistry("")
}

// NewNamedFuncRegistry creates a function registry for an extension namespace
func NewNamedFuncRegistry(name string) *FuncRegistry {
	return &FuncRegistry{name: name, funcs: make(map[string]*Func)}
}

// Name returns the namespace name, empty for the builtin registry
func (r *FuncRegistry) Name() string {
	return r.name
}

// Register adds a function. The first registration of a name wins.
func (r *FuncRegistry) Register(f *Func) error {
	if f == nil {
		return NewFuncRegistryError(ErrMsgFuncNilFunc, "")
	}
	if f.Name == "" {
		return NewFuncRegistryError(ErrMsgFuncEmptyName, "")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[f.Name]; exists {
		return NewFuncRegistryError(ErrMsgFuncAlreadyExists, f.Name)
	}
	r.funcs[f.Name] = f
	return nil
}

// MustRegister adds a function and panics on error
func (r *FuncRegistry) MustRegister(f *Func) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// RegisterAll adds each function, stopping at the first error
func (r *FuncRegistry) RegisterAll(funcs ...*Func) error {
	for _, f := range funcs {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a function by name
func (r *FuncRegistry) Get(name string) (*Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.funcs[name]
	return f, ok
}

// Has checks if a function is registered
func (r *FuncRegistry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Call invokes a function by name after checking the argument count
func (r *FuncRegistry) Call(name string, args []any) (any, error) {
	f, ok := r.Get(name)
	if !ok {
		return nil, NewFuncError(ErrMsgFuncNotFound, r.qualify(name))
	}

	if len(args) < f.MinArgs {
		return nil, NewFuncArgError(ErrMsgFuncTooFewArgs, r.qualify(name), f.MinArgs, len(args))
	}
	if f.MaxArgs >= 0 && len(args) > f.MaxArgs {
		return nil, NewFuncArgError(ErrMsgFuncTooManyArgs, r.qualify(name), f.MaxArgs, len(args))
	}

	result, err := f.Fn(args)
	if err != nil {
		return nil, NewFuncExecError(r.qualify(name), err)
	}
	return result, nil
}

func (r *FuncRegistry) qualify(name string) string {
	if r.name == "" {
		return name
	}
	return r.name + PathSeparator + name
}

// List returns all registered function names, sorted
func (r *FuncRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered functions
func (r *FuncRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.funcs)
}

// FuncRegistryError represents a function registry error
type FuncRegistryError struct {
	Message  string
	FuncName string
}

// NewFuncRegistryError creates a new function registry error
func NewFuncRegistryError(message, funcName string) *FuncRegistryError {
	return &FuncRegistryError{Message: message, FuncName: funcName}
}

// Error implements the error interface
func (e *FuncRegistryError) Error() string {
	if e.FuncName != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.FuncName)
	}
	return e.Message
}

// FuncError represents a function lookup error
type FuncError struct {
	Message  string
	FuncName string
}

// NewFuncError creates a new function error
func NewFuncError(message, funcName string) *FuncError {
	return &FuncError{Message: message, FuncName: funcName}
}

// Error implements the error interface
func (e *FuncError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.FuncName)
}

// FuncArgError represents a function argument count error
type FuncArgError struct {
	Message  string
	FuncName string
	Expected int
	Actual   int
}

// NewFuncArgError creates a new function argument error
func NewFuncArgError(message, funcName string, expected, actual int) *FuncArgError {
	return &FuncArgError{Message: message, FuncName: funcName, Expected: expected, Actual: actual}
}

// Error implements the error interface
func (e *FuncArgError) Error() string {
	return fmt.Sprintf("%s: %s (expected %d, got %d)", e.Message, e.FuncName, e.Expected, e.Actual)
}

// FuncExecError wraps an error returned by a function body
type FuncExecError struct {
	FuncName string
	Cause    error
}

// NewFuncExecError creates a new function execution error
func NewFuncExecError(funcName string, cause error) *FuncExecError {
	return &FuncExecError{FuncName: funcName, Cause: cause}
}

// Error implements the error interface
func (e *FuncExecError) Error() string {
	return fmt.Sprintf("function %s failed: %v", e.FuncName, e.Cause)
}

// Unwrap returns the underlying error
func (e *FuncExecError) Unwrap() error {
	return e.Cause
}

// FuncTypeError represents a type error in function arguments
type FuncTypeError struct {
	Message  string
	FuncName string
	ArgIndex int
}

// NewFuncTypeError creates a new function type error
func NewFuncTypeError(message, funcName string, argIndex int) *FuncTypeError {
	return &FuncTypeError{Message: message, FuncName: funcName, ArgIndex: argIndex}
}

// Error implements the error interface
func (e *FuncTypeError) Error() string {
	return fmt.Sprintf("%s: %s (argument %d)", e.Message, e.FuncName, e.ArgIndex)
}

// Function error messages
const (
	ErrMsgFuncNilFunc          = "function cannot be nil"
	ErrMsgFuncEmptyName        = "function name cannot be empty"
	ErrMsgFuncAlreadyExists    = "function already registered"
	ErrMsgFuncNotFound         = "function not found"
	ErrMsgFuncTooFewArgs       = "too few arguments"
	ErrMsgFuncTooManyArgs      = "too many arguments"
	ErrMsgFuncExpectedString   = "expected string argument"
	ErrMsgFuncExpectedList     = "expected list argument"
	ErrMsgFuncExpectedMap      = "expected map argument"
	ErrMsgFuncConversionFailed = "type conversion failed"
)
