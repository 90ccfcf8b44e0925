package paxml

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEngine creates an engine with isolated mutexes and buffered output
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	base := []Option{WithMutexRegistry(NewMutexRegistry(nil)), WithOutput(out)}
	engine, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return engine, out
}

// addEntity builds an entity against the engine registry and adds it
func addEntity(t *testing.T, engine *Engine, name string, build func(b *EntityBuilder)) *Entity {
	t.Helper()
	b := NewEntityBuilder(name, engine.Registry())
	build(b)
	entity, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, engine.Add(entity))
	return entity
}

// recordTag is a test tag kind calling fn with its context
type recordTag struct {
	fn func(ctx *Context, tag *Tag) (any, error)
}

func (r recordTag) Execute(ctx *Context, tag *Tag) (any, error) {
	return r.fn(ctx, tag)
}

func registerRecordTag(t *testing.T, engine *Engine, name string, fn func(ctx *Context, tag *Tag) (any, error)) {
	t.Helper()
	require.NoError(t, engine.RegisterTag(TagDescriptor{
		Name:       name,
		New:        func() Behavior { return recordTag{fn: fn} },
		IfAttr:     AttrIf,
		UnlessAttr: AttrUnless,
		SupportsID: true,
	}))
}

func TestPackage_BasicUsage(t *testing.T) {
	engine, _ := newTestEngine(t)
	addEntity(t, engine, "greet", func(b *EntityBuilder) {
		b.Open(TagNameIterate).Attr(AttrList, "${people}").Attr(AttrVar, "p").
			Open(TagNameData).Text("Hello ${p}").Close().
			Close()
	})

	result, err := engine.Run(context.Background(), "greet", map[string]any{
		"people": []any{"Alice", "Bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{"Hello Alice", "Hello Bob"}, result)
}

func TestPackage_CustomTag(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.MustRegisterTag(TagDescriptor{
		Name: "echo",
		New: func() Behavior {
			return BehaviorFunc(func(ctx *Context, tag *Tag) (any, error) {
				return tag.Eval(ctx, AttrValue)
			})
		},
		IfAttr:     AttrIf,
		UnlessAttr: AttrUnless,
		SupportsID: true,
	})
	addEntity(t, engine, "main", func(b *EntityBuilder) {
		b.Leaf("echo", AttrValue, "${x}")
	})

	result, err := engine.Run(context.Background(), "main", map[string]any{"x": 5})
	require.NoError(t, err)
	assert.Equal(t, ResultList{5}, result)
}
