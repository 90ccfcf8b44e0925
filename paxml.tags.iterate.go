package paxml

import (
	"errors"
	"strconv"
	"strings"

	"github.com/itsatony/go-paxml/internal"
)

var iterateSources = []string{AttrList, AttrMap, AttrBean, AttrPath, AttrTimes, AttrValues}

// iterateTag runs its children once per element of exactly one source.
// Loop variables are bound in the enclosing context and the previous
// bindings are restored after every round.
type iterateTag struct{}

func (iterateTag) Validate(tag *Tag) error {
	count := 0
	for _, src := range iterateSources {
		if tag.HasAttr(src) {
			count++
		}
	}
	if count != 1 {
		return NewIterateSourceError(count)
	}
	return nil
}

// loop holds the variable names of one iterate execution. An empty name
// disables that binding.
type loop struct {
	tag     *Tag
	value   string
	index   string
	key     string
	results ResultList
}

func (iterateTag) Execute(ctx *Context, tag *Tag) (any, error) {
	l := &loop{tag: tag}
	var err error
	if l.value, err = tag.EvalString(ctx, AttrVar, DefaultVarName); err != nil {
		return nil, err
	}
	if l.index, err = tag.EvalString(ctx, AttrIndex, DefaultIndexName); err != nil {
		return nil, err
	}
	if l.key, err = tag.EvalString(ctx, AttrName, DefaultKeyName); err != nil {
		return nil, err
	}

	prev := ctx.ConstOverwritable()
	ctx.SetConstOverwritable(true)
	defer ctx.SetConstOverwritable(prev)

	switch {
	case tag.HasAttr(AttrList):
		err = l.sourceList(ctx)
	case tag.HasAttr(AttrMap):
		err = l.sourceMap(ctx)
	case tag.HasAttr(AttrBean):
		err = l.sourceBean(ctx)
	case tag.HasAttr(AttrPath):
		err = l.sourcePath(ctx)
	case tag.HasAttr(AttrTimes):
		err = l.sourceTimes(ctx)
	case tag.HasAttr(AttrValues):
		err = l.sourceValues(ctx)
	default:
		err = NewIterateSourceError(0)
	}
	if err != nil && !errors.Is(err, errLoopStopped) {
		return nil, err
	}
	return l.results.OrNil(), nil
}

func (l *loop) sourceList(ctx *Context) error {
	v, err := l.tag.Eval(ctx, AttrList)
	if err != nil {
		return err
	}
	return l.overList(ctx, v)
}

func (l *loop) overList(ctx *Context, v any) error {
	val := ValueOf(v)
	switch {
	case val.IsNull():
		return nil
	case val.Kind() == KindList:
		if it, ok := v.(Iterator); ok {
			return l.overIterator(ctx, it)
		}
		for i, item := range val.Items() {
			if err := l.round(ctx, strconv.Itoa(i), i, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return l.round(ctx, nil, 0, v)
	}
}

func (l *loop) overIterator(ctx *Context, it Iterator) error {
	i := 0
	for {
		item, ok := it.Next()
		if !ok {
			return nil
		}
		if item == nil {
			continue
		}
		if err := l.round(ctx, strconv.Itoa(i), i, item); err != nil {
			return err
		}
		i++
	}
}

func (l *loop) sourceMap(ctx *Context) error {
	v, err := l.tag.Eval(ctx, AttrMap)
	if err != nil {
		return err
	}
	val := ValueOf(v)
	switch val.Kind() {
	case KindNull:
		return nil
	case KindMap, KindObject:
		return l.overEntries(ctx, val, true)
	default:
		return l.round(ctx, nil, 0, v)
	}
}

func (l *loop) sourceBean(ctx *Context) error {
	v, err := l.tag.Eval(ctx, AttrBean)
	if err != nil {
		return err
	}
	val := ValueOf(v)
	switch val.Kind() {
	case KindNull:
		return nil
	case KindMap, KindObject:
		// property getters run only when the value is bound
		return l.overEntries(ctx, val, l.value != "")
	default:
		return NewInvalidAttributeError(AttrBean, val.Kind().String(), ErrMsgNotIntrospectable)
	}
}

func (l *loop) overEntries(ctx *Context, val Value, readValue bool) error {
	for i, key := range val.Keys() {
		var item any
		if readValue {
			item, _ = val.Member(key)
		}
		if err := l.round(ctx, key, i, item); err != nil {
			return err
		}
	}
	return nil
}

func (l *loop) sourcePath(ctx *Context) error {
	query, err := l.tag.EvalString(ctx, AttrPath, "")
	if err != nil {
		return err
	}
	items, err := SelectPath(ctx, query)
	if err != nil {
		return err
	}
	return l.overList(ctx, items)
}

func (l *loop) sourceTimes(ctx *Context) error {
	s, err := l.tag.EvalString(ctx, AttrTimes, "")
	if err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return NewInvalidAttributeError(AttrTimes, s, err.Error())
	}
	rounds := int(f)
	for i := 0; i < rounds; i++ {
		if err := l.round(ctx, nil, i, i); err != nil {
			return err
		}
	}
	return nil
}

func (l *loop) sourceValues(ctx *Context) error {
	v, err := l.tag.Eval(ctx, AttrValues)
	if err != nil {
		return err
	}
	val := ValueOf(v)
	switch val.Kind() {
	case KindMap:
		return l.overEntries(ctx, val, true)
	default:
		return l.overList(ctx, v)
	}
}

// errLoopStopped ends the source enumeration once a round exited or returned
var errLoopStopped = errors.New("iterate: loop stopped")

// round binds the loop variables, runs the children once and restores
// whatever the names were bound to before.
func (l *loop) round(ctx *Context, key any, index int, value any) error {
	restore := bindLoopVars(ctx, []loopVar{
		{l.value, value},
		{l.index, index},
		{l.key, key},
	})
	results, err := l.tag.ExecuteChildren(ctx)
	restore()
	if err != nil {
		return err
	}
	l.results = l.results.Append(results)
	if chainStopped(ctx) {
		return errLoopStopped
	}
	return nil
}

type loopVar struct {
	name  string
	value any
}

type savedVar struct {
	name     string
	existed  bool
	property bool
	old      any
}

// bindLoopVars replaces the local bindings of vars using remove then add,
// and returns a function putting the previous bindings back.
func bindLoopVars(ctx *Context, vars []loopVar) (restore func()) {
	saved := make([]savedVar, 0, len(vars))
	for _, v := range vars {
		if v.name == "" {
			continue
		}
		property := ctx.isPropertyConst(v.name)
		old, existed := ctx.RemoveConst(v.name)
		saved = append(saved, savedVar{name: v.name, existed: existed, property: property, old: old})
		ctx.SetConst(v.name, v.value)
	}
	return func() {
		for i := len(saved) - 1; i >= 0; i-- {
			s := saved[i]
			ctx.RemoveConst(s.name)
			if s.existed {
				ctx.SetConst(s.name, s.old)
				if s.property {
					ctx.MarkPropertyConst(s.name)
				}
			}
		}
	}
}

// SelectPath evaluates a dotted selector against ctx. The first segment
// names a const; later segments select members, and a * segment expands
// every element of a list or value of a map.
func SelectPath(ctx *Context, query string) ([]any, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewInvalidAttributeError(AttrPath, query, ErrMsgInvalidPathQuery)
	}
	segments := strings.Split(query, PathSeparator)
	for _, seg := range segments {
		if seg == "" {
			return nil, NewInvalidAttributeError(AttrPath, query, ErrMsgInvalidPathQuery)
		}
	}
	if segments[0] == PathWildcard {
		return nil, NewInvalidAttributeError(AttrPath, query, ErrMsgInvalidPathQuery)
	}

	root, ok := ctx.Const(segments[0], true)
	if !ok {
		return nil, nil
	}
	return internal.SelectAll(root, segments[1:]), nil
}
