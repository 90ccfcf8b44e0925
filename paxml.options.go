package paxml

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine
type Option func(*engineConfig)

type engineConfig struct {
	logger          *zap.Logger
	registry        *TagRegistry
	libraries       []TagLibrary
	storage         EntityStorage
	locator         EntityLocator
	mutexes         *MutexRegistry
	mutexTimeout    time.Duration
	tagListeners    []TagListener
	entityListeners []EntityListener
	goctx           context.Context
	output          io.Writer
}

func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		mutexTimeout: DefaultMutexTimeout,
		goctx:        context.Background(),
	}
}

// WithLogger sets the logger for the engine and every chain it creates.
// Default: no logging.
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithRegistry uses an existing tag registry. The core library is added to
// it unless already present.
func WithRegistry(r *TagRegistry) Option {
	return func(c *engineConfig) {
		c.registry = r
	}
}

// WithLibrary registers an additional tag library
func WithLibrary(lib TagLibrary) Option {
	return func(c *engineConfig) {
		c.libraries = append(c.libraries, lib)
	}
}

// WithStorage resolves call targets that are not added to the engine
// through storage.
func WithStorage(s EntityStorage) Option {
	return func(c *engineConfig) {
		c.storage = s
	}
}

// WithLocator resolves call targets that are not added to the engine.
// It takes precedence over WithStorage.
func WithLocator(l EntityLocator) Option {
	return func(c *engineConfig) {
		c.locator = l
	}
}

// WithMutexRegistry isolates the engine's named mutexes from the
// process-wide default registry.
func WithMutexRegistry(r *MutexRegistry) Option {
	return func(c *engineConfig) {
		c.mutexes = r
	}
}

// WithMutexTimeout sets the wait bound of mutex tags without a timeout
// attribute. Default: 120s.
func WithMutexTimeout(d time.Duration) Option {
	return func(c *engineConfig) {
		c.mutexTimeout = d
	}
}

// WithTagListener adds a tag listener to every chain
func WithTagListener(l TagListener) Option {
	return func(c *engineConfig) {
		c.tagListeners = append(c.tagListeners, l)
	}
}

// WithEntityListener adds an entity listener to every chain
func WithEntityListener(l EntityListener) Option {
	return func(c *engineConfig) {
		c.entityListeners = append(c.entityListeners, l)
	}
}

// WithBaseContext sets the default context.Context of chains created by
// NewContext.
func WithBaseContext(ctx context.Context) Option {
	return func(c *engineConfig) {
		if ctx != nil {
			c.goctx = ctx
		}
	}
}

// WithOutput sets the writer of print tags. Default: os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *engineConfig) {
		c.output = w
	}
}
