package paxml

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runEntity(t *testing.T, props map[string]any, build func(b *EntityBuilder)) (any, error) {
	t.Helper()
	engine, _ := newTestEngine(t)
	addEntity(t, engine, "main", build)
	return engine.Run(context.Background(), "main", props)
}

func TestIterate_List_DefaultNames(t *testing.T) {
	result, err := runEntity(t, map[string]any{"l": []any{"a", "b"}}, func(b *EntityBuilder) {
		b.Open(TagNameIterate).Attr(AttrList, "${l}").
			Leaf(TagNameExpression, AttrValue, "${index}:${var}:${name}").
			Close()
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{"0:a:0", "1:b:1"}, result)
}

func TestIterate_ShadowAndRestore(t *testing.T) {
	result, err := runEntity(t, map[string]any{"p": "root", "l": []string{"x", "y"}}, func(b *EntityBuilder) {
		b.Open(TagNameConst).ID("v").Attr(AttrValue, "outer").Close().
			Open(TagNameIterate).Attr(AttrList, "${l}").Attr(AttrVar, "v").Attr(AttrIndex, "p").
			Leaf(TagNameExpression, AttrValue, "${p}${v}").
			Close().
			Leaf(TagNameExpression, AttrValue, "${v} ${p}")
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{"outer", "0x", "1y", "outer root"}, result)
}

func TestIterate_UnboundIndexIsRemovedAfterLoop(t *testing.T) {
	engine, _ := newTestEngine(t)

	type state struct {
		x          any
		hasX, hasI bool
	}
	var seen []state
	registerRecordTag(t, engine, "inspect", func(ctx *Context, _ *Tag) (any, error) {
		x, _ := ctx.Const("x", true)
		seen = append(seen, state{x: x, hasX: ctx.HasConst("x", true), hasI: ctx.HasConst("ix", true)})
		return nil, nil
	})
	addEntity(t, engine, "main", func(b *EntityBuilder) {
		b.Open(TagNameConst).ID("x").Attr(AttrValue, "outer").Close().
			Open(TagNameIterate).Attr(AttrList, "${l}").Attr(AttrVar, "x").Attr(AttrIndex, "ix").
			Leaf("inspect").
			Close().
			Leaf("inspect")
	})

	_, err := engine.Run(context.Background(), "main", map[string]any{"l": []any{10, 20}})
	require.NoError(t, err)
	assert.Equal(t, []state{
		{x: 10, hasX: true, hasI: true},
		{x: 20, hasX: true, hasI: true},
		{x: "outer", hasX: true, hasI: false},
	}, seen)
}

func TestBindLoopVars_KeepsPropertyMark(t *testing.T) {
	root := NewRootContext(map[string]any{"p": "prop"})
	require.Equal(t, []string{"p"}, root.PropertyConsts(false))

	restore := bindLoopVars(root, []loopVar{{"p", 1}, {"i", 0}})
	assert.Empty(t, root.PropertyConsts(false))
	restore()

	v, ok := root.Const("p", false)
	require.True(t, ok)
	assert.Equal(t, "prop", v)
	assert.Equal(t, []string{"p"}, root.PropertyConsts(false))
	assert.False(t, root.HasConst("i", false))
}

func TestIterate_StopsPullingAfterReturnOrExit(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want any
	}{
		{"return", TagNameReturn, "done"},
		{"exit", TagNameExit, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := &sliceIterator{items: []any{1, 2, 3, 4, 5}}
			result, err := runEntity(t, map[string]any{"it": it}, func(b *EntityBuilder) {
				b.Open(TagNameIterate).Attr(AttrList, "${it}").
					Open(tt.tag).Attr(AttrValue, "done").Attr(AttrIf, "${var == 2}").Close().
					Close()
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
			assert.Equal(t, 2, it.pos, "no item is pulled after the stopping round")
		})
	}
}

func TestIterate_Nested(t *testing.T) {
	result, err := runEntity(t, nil, func(b *EntityBuilder) {
		b.Open(TagNameIterate).Attr(AttrTimes, "2").Attr(AttrVar, "i").
			Open(TagNameIterate).Attr(AttrTimes, "2").Attr(AttrVar, "j").
			Leaf(TagNameExpression, AttrValue, "${i}${j}").
			Close().
			Leaf(TagNameExpression, AttrValue, "end ${i}").
			Close()
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{"00", "01", "end 0", "10", "11", "end 1"}, result)
}

func TestIterate_IDResultOverwritesPerRound(t *testing.T) {
	result, err := runEntity(t, nil, func(b *EntityBuilder) {
		b.Open(TagNameIterate).Attr(AttrTimes, "3").
			Open(TagNameExpression).ID("last").Attr(AttrValue, "${var}").Close().
			Close().
			Leaf(TagNameExpression, AttrValue, "last=${last}")
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{0, 1, 2, "last=2"}, result)
}

func TestIterate_Times(t *testing.T) {
	result, err := runEntity(t, nil, func(b *EntityBuilder) {
		b.Open(TagNameIterate).Attr(AttrTimes, "3").
			Leaf(TagNameExpression, AttrValue, "${var}/${index}/?{name}").
			Close()
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{"0/0/", "1/1/", "2/2/"}, result)
}

func TestIterate_Map(t *testing.T) {
	m := map[string]any{"b": 2, "a": 1, "c10": 3, "c9": 4}
	result, err := runEntity(t, map[string]any{"m": m}, func(b *EntityBuilder) {
		b.Open(TagNameIterate).Attr(AttrMap, "${m}").Attr(AttrName, "k").
			Leaf(TagNameExpression, AttrValue, "${k}=${var}").
			Close()
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{"a=1", "b=2", "c9=4", "c10=3"}, result)
}

func TestIterate_Values(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"list", []any{"x", "y"}, ResultList{"x", "y"}},
		{"map", map[string]any{"k": "v"}, ResultList{"v"}},
		{"scalar", "s", ResultList{"s"}},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := runEntity(t, map[string]any{"v": tt.value}, func(b *EntityBuilder) {
				b.Open(TagNameIterate).Attr(AttrValues, "${v}").
					Leaf(TagNameExpression, AttrValue, "${var}").
					Close()
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestIterate_ScalarListVisitedOnce(t *testing.T) {
	result, err := runEntity(t, map[string]any{"s": "only"}, func(b *EntityBuilder) {
		b.Open(TagNameIterate).Attr(AttrList, "${s}").
			Leaf(TagNameExpression, AttrValue, "${var}|${name}").
			Close()
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{"only|"}, result)
}

type sliceIterator struct {
	items []any
	pos   int
}

func (it *sliceIterator) Next() (any, bool) {
	if it.pos >= len(it.items) {
		return nil, false
	}
	v := it.items[it.pos]
	it.pos++
	return v, true
}

func TestIterate_IteratorSkipsNil(t *testing.T) {
	it := &sliceIterator{items: []any{"a", nil, "b"}}
	result, err := runEntity(t, map[string]any{"it": it}, func(b *EntityBuilder) {
		b.Open(TagNameIterate).Attr(AttrList, "${it}").
			Leaf(TagNameExpression, AttrValue, "${index}${var}").
			Close()
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{"0a", "1b"}, result)
}

func TestIterate_Path(t *testing.T) {
	people := []any{
		map[string]any{"name": "Ann", "tags": []any{"x"}},
		map[string]any{"name": "Bob", "tags": []any{"y", "z"}},
	}
	tests := []struct {
		query string
		want  any
	}{
		{"people.*.name", ResultList{"Ann", "Bob"}},
		{"people.*.tags.*", ResultList{"x", "y", "z"}},
		{"people.1.name", ResultList{"Bob"}},
		{"people.*.missing", nil},
		{"nobody.*", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			result, err := runEntity(t, map[string]any{"people": people}, func(b *EntityBuilder) {
				b.Open(TagNameIterate).Attr(AttrPath, tt.query).
					Leaf(TagNameExpression, AttrValue, "${var}").
					Close()
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestSelectPath_Invalid(t *testing.T) {
	ctx := NewRootContext(map[string]any{"a": 1})
	for _, q := range []string{"", "a..b", "*.x", "a."} {
		_, err := SelectPath(ctx, q)
		assert.Error(t, err, q)
	}
}

type testBean struct {
	reads *int
}

func (b testBean) Properties() []Property {
	get := func(v any) func() any {
		return func() any {
			*b.reads++
			return v
		}
	}
	return []Property{
		{Name: "name", Get: get("Ann")},
		{Name: "age", Get: get(42)},
	}
}

func TestIterate_Bean(t *testing.T) {
	reads := 0
	bean := testBean{reads: &reads}

	result, err := runEntity(t, map[string]any{"b": bean}, func(b *EntityBuilder) {
		b.Open(TagNameIterate).Attr(AttrBean, "${b}").Attr(AttrVar, "v").Attr(AttrName, "prop").
			Leaf(TagNameExpression, AttrValue, "${prop}=${v}").
			Close()
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{"name=Ann", "age=42"}, result)
	assert.Equal(t, 2, reads)
}

func TestIterate_BeanNamesOnly(t *testing.T) {
	reads := 0
	bean := testBean{reads: &reads}

	result, err := runEntity(t, map[string]any{"b": bean}, func(b *EntityBuilder) {
		b.Open(TagNameIterate).Attr(AttrBean, "${b}").Attr(AttrVar, "").
			Leaf(TagNameExpression, AttrValue, "${name}").
			Close()
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{"name", "age"}, result)
	assert.Zero(t, reads, "getters are not read when the value is not bound")
}

func TestIterate_Errors(t *testing.T) {
	tests := []struct {
		name string
		attr string
		expr string
	}{
		{"times not a number", AttrTimes, "many"},
		{"bean not introspectable", AttrBean, "text"},
		{"strict list", AttrList, "${missing}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runEntity(t, nil, func(b *EntityBuilder) {
				b.Open(TagNameIterate).Attr(tt.attr, tt.expr).
					Leaf(TagNameData, AttrValue, "x").
					Close()
			})
			require.Error(t, err)
		})
	}
}

func TestConst(t *testing.T) {
	result, err := runEntity(t, map[string]any{"n": 3}, func(b *EntityBuilder) {
		b.Open(TagNameConst).ID("a").Attr(AttrValue, "${n}").Close().
			Open(TagNameConst).ID("b").Text("text ${a}").Close().
			Open(TagNameConst).ID("c").
			Leaf(TagNameData, AttrValue, "x").
			Leaf(TagNameData, AttrValue, "y").
			Close().
			Leaf(TagNameExpression, AttrValue, "${a}|${b}|${c}")
	})
	require.NoError(t, err)
	list := result.(ResultList)
	assert.Equal(t, "3|text 3|[x y]", list[len(list)-1])
}

func TestExpressionTag_Text(t *testing.T) {
	result, err := runEntity(t, map[string]any{"n": 3}, func(b *EntityBuilder) {
		b.Open(TagNameExpression).Text("${n}").Close()
	})
	require.NoError(t, err)
	assert.Equal(t, ResultList{3}, result)
}

func TestPrint(t *testing.T) {
	engine, out := newTestEngine(t)
	addEntity(t, engine, "main", func(b *EntityBuilder) {
		b.Leaf(TagNamePrint, AttrValue, "Hello ${who}").
			Open(TagNamePrint).Text("second").Close()
	})

	result, err := engine.Run(context.Background(), "main", map[string]any{"who": "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello World\nsecond\n", out.String())
	assert.Equal(t, ResultList{"Hello World", "second"}, result)
}

func TestCall_Params(t *testing.T) {
	engine, _ := newTestEngine(t)
	addEntity(t, engine, "greet", func(b *EntityBuilder) {
		b.Leaf(TagNameExpression, AttrValue, "${greeting} ${value}")
	})
	addEntity(t, engine, "main", func(b *EntityBuilder) {
		b.Open(TagNameCall).Attr(AttrTarget, "${target}").
			Leaf(TagNameParam, AttrName, "greeting", AttrValue, "Hi").
			Leaf(TagNameParam, AttrValue, "${who}").
			Close().
			Leaf(TagNameExpression, AttrValue, "?{greeting}")
	})

	result, err := engine.Run(context.Background(), "main", map[string]any{"target": "greet", "who": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, ResultList{"Hi Ann"}, result, "params do not leak into the caller")
}

func TestCall_DefaultParameter(t *testing.T) {
	engine, _ := newTestEngine(t)
	var param any
	registerRecordTag(t, engine, "probe", func(ctx *Context, _ *Tag) (any, error) {
		param = ctx.CurrentEntityContext().DefaultParameter()
		return nil, nil
	})
	addEntity(t, engine, "callee", func(b *EntityBuilder) {
		b.Leaf("probe")
	})
	addEntity(t, engine, "main", func(b *EntityBuilder) {
		b.Open(TagNameCall).Attr(AttrTarget, "callee").
			Open(TagNameParam).Text("payload").Close().
			Close()
	})

	_, err := engine.Run(context.Background(), "main", nil)
	require.NoError(t, err)
	assert.Equal(t, "payload", param)
}

func TestCall_CallerContext(t *testing.T) {
	engine, _ := newTestEngine(t)
	var caller *Entity
	registerRecordTag(t, engine, "probe", func(ctx *Context, _ *Tag) (any, error) {
		caller = ctx.FindCallerEntity()
		return nil, nil
	})
	addEntity(t, engine, "callee", func(b *EntityBuilder) { b.Leaf("probe") })
	main := addEntity(t, engine, "main", func(b *EntityBuilder) {
		b.Leaf(TagNameCall, AttrTarget, "callee")
	})

	_, err := engine.Run(context.Background(), "main", nil)
	require.NoError(t, err)
	assert.Equal(t, main, caller)

	_, err = engine.Run(context.Background(), "callee", nil)
	require.NoError(t, err)
	assert.Nil(t, caller, "a top-level entity has no caller")
}

func TestCall_UnknownTarget(t *testing.T) {
	_, err := runEntity(t, nil, func(b *EntityBuilder) {
		b.Leaf(TagNameCall, AttrTarget, "nowhere")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgEntityNotFound)
}

func TestParam_OutsideCall(t *testing.T) {
	_, err := runEntity(t, nil, func(b *EntityBuilder) {
		b.Leaf(TagNameParam, AttrValue, "x")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgParamOutsideCall)
}

func TestCall_ErrorReportsInnermostTag(t *testing.T) {
	engine, _ := newTestEngine(t)
	addEntity(t, engine, "bad", func(b *EntityBuilder) {
		b.Leaf(TagNameExpression, AttrValue, "${missing}")
	})
	addEntity(t, engine, "main", func(b *EntityBuilder) {
		b.Leaf(TagNameCall, AttrTarget, "bad")
	})

	_, err := engine.Run(context.Background(), "main", nil)
	require.Error(t, err)

	var tagErr *TagError
	require.True(t, errors.As(err, &tagErr))
	assert.Equal(t, "bad", tagErr.Entity, "the innermost tag is reported")
}
