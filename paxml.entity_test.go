package paxml

import (
	"errors"
	"testing"

	"github.com/itsatony/go-cuserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityBuilder_Build(t *testing.T) {
	engine, _ := newTestEngine(t)

	e, err := NewEntityBuilder("main", engine.Registry()).
		Open(TagNameGroup).ID("g").
		Leaf(TagNameData, AttrValue, "a").
		Open(TagNameData).Text("b").Close().
		Close().
		Build()
	require.NoError(t, err)

	assert.Equal(t, "main", e.Name())
	assert.Equal(t, 4, e.Len())
	require.Len(t, e.Root().Children(), 1)

	group := e.Root().Children()[0]
	assert.Equal(t, TagNameGroup, group.Name())
	assert.Equal(t, "g", group.ID())
	assert.Equal(t, e.Root(), group.Parent())
	require.Len(t, group.Children(), 2)
	assert.Equal(t, group.Children()[0], group.Children()[1].PreviousSibling())
	assert.Nil(t, group.Children()[0].PreviousSibling())
	assert.Nil(t, e.Tag(99))
}

func TestEntityBuilder_LineNumbers(t *testing.T) {
	engine, _ := newTestEngine(t)

	e := NewEntityBuilder("main", engine.Registry()).
		Leaf(TagNameData, AttrValue, "a").
		Line(10).Leaf(TagNameData, AttrValue, "b").
		Leaf(TagNameData, AttrValue, "c").
		MustBuild()

	children := e.Root().Children()
	assert.Equal(t, 1, children[0].Line())
	assert.Equal(t, 10, children[1].Line())
	assert.Equal(t, 11, children[2].Line())
}

func TestEntityBuilder_Errors(t *testing.T) {
	engine, _ := newTestEngine(t)

	tests := []struct {
		name  string
		build func(b *EntityBuilder) *EntityBuilder
		msg   string
	}{
		{
			name:  "unknown tag",
			build: func(b *EntityBuilder) *EntityBuilder { return b.Open("nope").Close() },
			msg:   ErrMsgUnknownTag,
		},
		{
			name:  "unbalanced close",
			build: func(b *EntityBuilder) *EntityBuilder { return b.Close() },
			msg:   ErrMsgUnbalancedClose,
		},
		{
			name:  "unclosed tag",
			build: func(b *EntityBuilder) *EntityBuilder { return b.Open(TagNameGroup) },
			msg:   ErrMsgUnclosedTags,
		},
		{
			name:  "id not supported",
			build: func(b *EntityBuilder) *EntityBuilder { return b.Open(TagNameParam).ID("x").Close() },
			msg:   ErrMsgIDNotSupported,
		},
		{
			name:  "malformed template",
			build: func(b *EntityBuilder) *EntityBuilder { return b.Leaf(TagNameData, AttrValue, "${unclosed") },
			msg:   ErrMsgCompileFailed,
		},
		{
			name:  "iterate without source",
			build: func(b *EntityBuilder) *EntityBuilder { return b.Open(TagNameIterate).Close() },
			msg:   ErrMsgIterateSource,
		},
		{
			name: "iterate with two sources",
			build: func(b *EntityBuilder) *EntityBuilder {
				return b.Leaf(TagNameIterate, AttrList, "${a}", AttrTimes, "3")
			},
			msg: ErrMsgIterateSource,
		},
		{
			name:  "const without id",
			build: func(b *EntityBuilder) *EntityBuilder { return b.Leaf(TagNameConst, AttrValue, "1") },
			msg:   ErrMsgMissingAttribute,
		},
		{
			name:  "call without target",
			build: func(b *EntityBuilder) *EntityBuilder { return b.Leaf(TagNameCall) },
			msg:   ErrMsgMissingAttribute,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build(NewEntityBuilder("main", engine.Registry())).Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestEntityBuilder_UnknownTagMetadata(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := NewEntityBuilder("main", engine.Registry()).
		Leaf(TagNameData).
		Open("mystery").Close().
		Build()
	require.Error(t, err)

	var ce *cuserr.CustomError
	require.True(t, errors.As(err, &ce))
	tag, ok := ce.GetMetadata(MetaKeyTag)
	assert.True(t, ok)
	assert.Equal(t, "mystery", tag)
	line, _ := ce.GetMetadata(MetaKeyLine)
	assert.Equal(t, "2", line)
}

func TestEntity_Walk(t *testing.T) {
	engine, _ := newTestEngine(t)
	e := NewEntityBuilder("main", engine.Registry()).
		Open(TagNameGroup).
		Leaf(TagNameData, AttrValue, "a").
		Close().
		Leaf(TagNameData, AttrValue, "b").
		MustBuild()

	var names []string
	e.Walk(func(tag *Tag) bool {
		names = append(names, tag.Name())
		return tag.Name() != TagNameGroup
	})
	assert.Equal(t, []string{"main", TagNameGroup, TagNameData}, names,
		"root, group (children skipped), trailing data")
}

func TestTag_Attributes(t *testing.T) {
	engine, _ := newTestEngine(t)
	e := NewEntityBuilder("main", engine.Registry()).
		Leaf(TagNameIterate, AttrTimes, "2", AttrVar, "v", AttrIndex, "i").
		MustBuild()

	tag := e.Root().Children()[0]
	assert.Equal(t, []string{AttrTimes, AttrVar, AttrIndex}, tag.AttrNames())
	assert.True(t, tag.HasAttr(AttrVar))
	assert.False(t, tag.HasAttr(AttrList))

	expr, ok := tag.Attr(AttrTimes)
	require.True(t, ok)
	assert.True(t, expr.IsLiteral())
	assert.Equal(t, "2", expr.Source())
}

func TestTagRegistry_Register(t *testing.T) {
	r := NewTagRegistry(nil)
	desc := TagDescriptor{Name: "x", New: func() Behavior { return groupTag{} }}

	require.NoError(t, r.Register(desc))
	assert.True(t, r.Has("x"))
	assert.Equal(t, 1, r.Count())

	err := r.Register(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgTagExists)

	require.Error(t, r.Register(TagDescriptor{Name: "y"}))
	assert.Panics(t, func() { r.MustRegister(desc) })
}

func TestTagRegistry_RegisterLibrary(t *testing.T) {
	r := NewTagRegistry(nil)
	require.NoError(t, r.RegisterLibrary(CoreLibrary()))

	for _, name := range []string{
		TagNameGroup, TagNameIf, TagNameElse, TagNameIterate, TagNameMutex,
		TagNameConst, TagNameData, TagNameExpression, TagNameCall, TagNameParam,
		TagNameReturn, TagNameExit, TagNamePrint,
	} {
		assert.True(t, r.Has(name), name)
	}

	err := r.RegisterLibrary(CoreLibrary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgLibraryExists)
	assert.Len(t, r.Libraries(), 1)
}

func TestCoreLibrary_Descriptors(t *testing.T) {
	r := NewTagRegistry(nil)
	require.NoError(t, r.RegisterLibrary(CoreLibrary()))

	tests := []struct {
		tag        string
		ifAttr     string
		unlessAttr string
		supportsID bool
	}{
		{TagNameGroup, AttrIf, AttrUnless, true},
		{TagNameIf, AttrTest, "", true},
		{TagNameElse, AttrTest, "", true},
		{TagNameParam, "", "", false},
		{TagNameReturn, AttrIf, AttrUnless, false},
		{TagNameExit, AttrIf, AttrUnless, false},
		{TagNameMutex, AttrIf, AttrUnless, true},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			d, ok := r.Lookup(tt.tag)
			require.True(t, ok)
			assert.Equal(t, tt.ifAttr, d.IfAttr)
			assert.Equal(t, tt.unlessAttr, d.UnlessAttr)
			assert.Equal(t, tt.supportsID, d.SupportsID)
			assert.Equal(t, tt.ifAttr != "", d.Conditional())
		})
	}
}
