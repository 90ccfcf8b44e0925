package paxml

import (
	"context"
	"errors"
	"testing"

	"github.com/itsatony/go-cuserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootContext_Properties(t *testing.T) {
	root := NewRootContext(map[string]any{"a": 1, "b": "x"}, WithProcessID("proc-1"))

	assert.True(t, root.IsRoot())
	assert.Equal(t, root, root.Root())
	assert.Equal(t, "proc-1", root.ProcessID())
	assert.Equal(t, []string{"a", "b"}, root.PropertyConsts(false))

	v, ok := root.Const("a", false)
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestNewRootContext_GeneratesProcessID(t *testing.T) {
	a := NewRootContext(nil)
	b := NewRootContext(nil)

	assert.NotEmpty(t, a.ProcessID())
	assert.NotEqual(t, a.ProcessID(), b.ProcessID())
}

func TestContext_AddConst(t *testing.T) {
	c := NewRootContext(nil)

	require.NoError(t, c.AddConst("x", 1))
	err := c.AddConst("x", 2)
	require.Error(t, err)

	var ce *cuserr.CustomError
	require.True(t, errors.As(err, &ce))
	name, _ := ce.GetMetadata(MetaKeyConst)
	assert.Equal(t, "x", name)

	v, _ := c.Const("x", false)
	assert.Equal(t, 1, v, "failed rebind leaves the old value")

	require.Error(t, c.AddConst("", 1))
}

func TestContext_AddConst_Overwritable(t *testing.T) {
	c := NewRootContext(nil)
	c.SetConstOverwritable(true)

	require.NoError(t, c.AddConst("x", 1))
	require.NoError(t, c.AddConst("x", 2))

	v, _ := c.Const("x", false)
	assert.Equal(t, 2, v)
}

func TestContext_RemoveThenAdd(t *testing.T) {
	c := NewRootContext(nil)
	require.NoError(t, c.AddConst("x", 1))

	old, ok := c.RemoveConst("x")
	require.True(t, ok)
	assert.Equal(t, 1, old)
	require.NoError(t, c.AddConst("x", 2))

	_, ok = c.RemoveConst("missing")
	assert.False(t, ok)
}

func TestContext_SetConst(t *testing.T) {
	c := NewRootContext(nil)
	assert.Nil(t, c.SetConst("x", 1))
	assert.Equal(t, 1, c.SetConst("x", 2))
}

func TestContext_ConstLookupThroughParents(t *testing.T) {
	root := NewRootContext(map[string]any{"g": "root"})
	child := root.NewChild()
	grandchild := child.NewChild()
	require.NoError(t, child.AddConst("c", "child"))
	require.NoError(t, grandchild.AddConst("g", "shadow"))

	v, ok := grandchild.Const("c", true)
	require.True(t, ok)
	assert.Equal(t, "child", v)

	_, ok = grandchild.Const("c", false)
	assert.False(t, ok)

	v, _ = grandchild.Const("g", true)
	assert.Equal(t, "shadow", v)
	v, _ = child.Const("g", true)
	assert.Equal(t, "root", v)

	assert.Equal(t, 2, grandchild.Depth())
	assert.Equal(t, root, grandchild.Root())
	assert.Equal(t, child, grandchild.Parent())
}

func TestContext_NilBindingIsPresent(t *testing.T) {
	c := NewRootContext(nil)
	require.NoError(t, c.AddConst("n", nil))

	v, ok := c.Const("n", true)
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.True(t, c.HasConst("n", false))
	assert.False(t, c.HasConst("other", true))
}

func TestContext_AddGlobalConst(t *testing.T) {
	root := NewRootContext(nil)
	child := root.NewChild().NewChild()

	require.NoError(t, child.AddGlobalConst("g", 42))
	v, ok := root.Const("g", false)
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestContext_ConstNames_NaturalOrder(t *testing.T) {
	c := NewRootContext(nil)
	for _, name := range []string{"item10", "item2", "item1"} {
		require.NoError(t, c.AddConst(name, true))
	}
	assert.Equal(t, []string{"item1", "item2", "item10"}, c.ConstNames())
}

func TestContext_ConstMap(t *testing.T) {
	root := NewRootContext(map[string]any{"r": 1, "s": 1})
	child := root.NewChild()
	require.NoError(t, child.AddConst("c", 2))
	require.NoError(t, child.AddConst("s", 2))

	tests := []struct {
		name         string
		mergeParents bool
		includeRoot  bool
		want         map[string]any
	}{
		{"local only", false, false, map[string]any{"c": 2, "s": 2}},
		{"merged without root", true, false, map[string]any{"c": 2, "s": 2}},
		{"merged with root", true, true, map[string]any{"r": 1, "c": 2, "s": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, child.ConstMap(tt.mergeParents, tt.includeRoot))
		})
	}
}

func TestContext_FindConstName(t *testing.T) {
	list := []any{1, 2}
	root := NewRootContext(map[string]any{"list": list, "n": 7})
	child := root.NewChild()

	name, ok := child.FindConstName(7, true)
	require.True(t, ok)
	assert.Equal(t, "n", name)

	name, ok = child.FindConstName(list, true)
	require.True(t, ok)
	assert.Equal(t, "list", name)

	_, ok = child.FindConstName([]any{1, 2}, true)
	assert.False(t, ok, "lists match by identity")

	_, ok = child.FindConstName(7, false)
	assert.False(t, ok)
}

type handle struct {
	Payload any
}

func TestContext_FindConstName_UncomparableValue(t *testing.T) {
	shared := []int{1}
	root := NewRootContext(map[string]any{"h": handle{Payload: shared}, "n": 7})

	var (
		name string
		ok   bool
	)
	require.NotPanics(t, func() {
		name, ok = root.FindConstName(handle{Payload: []int{1}}, true)
	})
	assert.False(t, ok)
	assert.Empty(t, name)

	name, ok = root.FindConstName(handle{Payload: "id-1"}, true)
	assert.False(t, ok)

	require.NoError(t, root.AddConst("k", handle{Payload: "id-1"}))
	name, ok = root.FindConstName(handle{Payload: "id-1"}, true)
	require.True(t, ok)
	assert.Equal(t, "k", name)
}

func TestContext_Internals(t *testing.T) {
	key := NewInternalKey("k")
	other := NewInternalKey("k")
	root := NewRootContext(nil, WithGlobalInternal(key, "seed"))
	child := root.NewChild()

	v, ok := child.Internal(key, true)
	require.True(t, ok)
	assert.Equal(t, "seed", v)

	_, ok = child.Internal(other, true)
	assert.False(t, ok, "keys with the same label are distinct")

	child.SetInternal(key, "local", false)
	grandchild := child.NewChild()
	_, ok = grandchild.LocalInternal(key, false)
	assert.False(t, ok)
	v, ok = grandchild.LocalInternal(key, true)
	require.True(t, ok)
	assert.Equal(t, "local", v)

	prev, ok := child.RemoveInternal(key, false)
	require.True(t, ok)
	assert.Equal(t, "local", prev)
	assert.Equal(t, "k", key.String())
}

func TestContext_DefaultParameter(t *testing.T) {
	c := NewRootContext(nil)
	assert.Nil(t, c.DefaultParameter())
	require.NoError(t, c.AddConst(DefaultParameterName, "p"))
	assert.Equal(t, "p", c.DefaultParameter())
}

func TestContext_SetAsCurrent_Restores(t *testing.T) {
	root := NewRootContext(nil)
	a := root.NewChild()
	b := a.NewChild()

	assert.Nil(t, root.Current())

	restoreA := a.SetAsCurrent()
	assert.Equal(t, a, root.Current())

	restoreB := b.SetAsCurrent()
	assert.Equal(t, b, a.Current())
	assert.Equal(t, b, root.Thread().Current())

	restoreB()
	assert.Equal(t, a, root.Current())
	restoreA()
	assert.Nil(t, root.Current())
}

func TestCurrentContext_ThroughGoContext(t *testing.T) {
	root := NewRootContext(nil)
	goctx := WithContext(context.Background(), root)

	assert.Nil(t, CurrentContext(goctx))

	child := root.NewChild()
	restore := child.SetAsCurrent()
	assert.Equal(t, child, CurrentContext(goctx))
	restore()

	assert.Nil(t, CurrentContext(context.Background()))
}

func TestContext_FaultContext_FirstWins(t *testing.T) {
	root := NewRootContext(nil)
	a := root.NewChild()
	b := root.NewChild()

	a.SetFaultContext(a)
	b.SetFaultContext(b)
	assert.Equal(t, a, root.FaultContext())
}

func TestContext_Provide_CachesAsRootConst(t *testing.T) {
	engine := MustNew()
	root := engine.NewContext(nil)
	child := root.NewChild()

	v, ok := child.Provide(UtilNamespace)
	require.True(t, ok)
	require.NotNil(t, v)

	cached, ok := root.Const(UtilNamespace, false)
	require.True(t, ok)
	assert.Equal(t, v, cached)

	_, ok = child.Provide("nothing")
	assert.False(t, ok)
}
