package paxml

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// TagListener observes tag execution. OnTagExit is called on every path,
// including skipped and failed tags.
type TagListener interface {
	OnTagEntry(ctx *Context, tag *Tag)
	OnTagExit(ctx *Context, tag *Tag, result any, err error)
}

// EntityListener observes entity execution
type EntityListener interface {
	OnEntityEntry(ctx *Context, e *Entity)
	OnEntityExit(ctx *Context, e *Entity, result any, err error)
}

var (
	keyTagListeners    = NewInternalKey("tag listeners")
	keyEntityListeners = NewInternalKey("entity listeners")
)

// AddTagListener registers a tag listener for the whole chain
func (c *Context) AddTagListener(l TagListener) {
	c.SetInternal(keyTagListeners, append(tagListeners(c), l), true)
}

// AddEntityListener registers an entity listener for the whole chain
func (c *Context) AddEntityListener(l EntityListener) {
	c.SetInternal(keyEntityListeners, append(entityListeners(c), l), true)
}

func tagListeners(c *Context) []TagListener {
	v, _ := c.Internal(keyTagListeners, true)
	ls, _ := v.([]TagListener)
	return ls
}

func entityListeners(c *Context) []EntityListener {
	v, _ := c.Internal(keyEntityListeners, true)
	ls, _ := v.([]EntityListener)
	return ls
}

// LoggingTagListener logs tag entry and exit with the call depth
type LoggingTagListener struct {
	Logger *zap.Logger
}

// OnTagEntry implements TagListener
func (l *LoggingTagListener) OnTagEntry(ctx *Context, tag *Tag) {
	l.Logger.Info(LogMsgTagEntry,
		zap.String(LogFieldEntity, tag.Entity().Name()),
		zap.String(LogFieldTag, tag.Name()),
		zap.Int(LogFieldLine, tag.Line()),
		zap.Int(LogFieldDepth, ctx.Stack().Len()))
}

// OnTagExit implements TagListener
func (l *LoggingTagListener) OnTagExit(ctx *Context, tag *Tag, _ any, err error) {
	fields := []zap.Field{
		zap.String(LogFieldEntity, tag.Entity().Name()),
		zap.String(LogFieldTag, tag.Name()),
		zap.Int(LogFieldLine, tag.Line()),
	}
	if err != nil {
		l.Logger.Warn(LogMsgTagExit, append(fields, zap.Error(err))...)
		return
	}
	l.Logger.Info(LogMsgTagExit, fields...)
}

// EntityTiming is one measured entity execution
type EntityTiming struct {
	Entity   string
	Duration time.Duration
	Failed   bool
}

// TimingEntityListener records how long each entity execution took.
// It is safe to share between chains.
type TimingEntityListener struct {
	mu      sync.Mutex
	started map[*Context]time.Time
	timings []EntityTiming
}

// NewTimingEntityListener creates an empty timing listener
func NewTimingEntityListener() *TimingEntityListener {
	return &TimingEntityListener{started: make(map[*Context]time.Time)}
}

// OnEntityEntry implements EntityListener
func (l *TimingEntityListener) OnEntityEntry(ctx *Context, _ *Entity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started[ctx] = time.Now()
}

// OnEntityExit implements EntityListener
func (l *TimingEntityListener) OnEntityExit(ctx *Context, e *Entity, _ any, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start, ok := l.started[ctx]
	if !ok {
		return
	}
	delete(l.started, ctx)
	l.timings = append(l.timings, EntityTiming{Entity: e.Name(), Duration: time.Since(start), Failed: err != nil})
}

// Timings returns the recorded timings in completion order
func (l *TimingEntityListener) Timings() []EntityTiming {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]EntityTiming(nil), l.timings...)
}
