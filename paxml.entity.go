package paxml

import (
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Entity is an independently invocable tag tree. Tags live in an arena;
// index 0 is the entity's root container.
type Entity struct {
	name string
	tags []*Tag
}

// Name returns the entity name
func (e *Entity) Name() string { return e.name }

// Root returns the root container tag
func (e *Entity) Root() *Tag { return e.tags[RootTag] }

// Tag returns the tag at idx, nil if out of range
func (e *Entity) Tag(idx TagIndex) *Tag {
	if idx < 0 || int(idx) >= len(e.tags) {
		return nil
	}
	return e.tags[idx]
}

// Len returns the number of tags including the root
func (e *Entity) Len() int { return len(e.tags) }

// Walk visits every tag depth first, parents before children. Returning
// false skips the children of that tag.
func (e *Entity) Walk(visit func(t *Tag) bool) {
	var walk func(idx TagIndex)
	walk = func(idx TagIndex) {
		t := e.tags[idx]
		if !visit(t) {
			return
		}
		for _, child := range t.children {
			walk(child)
		}
	}
	walk(RootTag)
}

// Execute runs the entity in a scope of its own. A root ctx, or one already
// owned by an entity, gets a new child scope; a fresh unowned scope such as
// the parameter scope of a call is adopted. The entity's scope is the
// ambient current context while it runs.
//
// When this is the top-level entity of the chain, the root's registered
// closeables are closed afterwards and their failures are combined with
// the execution error.
func (e *Entity) Execute(ctx *Context) (result any, err error) {
	ectx := ctx
	if ctx.IsRoot() || ctx.entity != nil {
		ectx = ctx.NewEntityContext(e)
	} else {
		ctx.entity = e
	}

	defer ectx.SetAsCurrent()()

	topLevel := ctx.Stack().IsEmpty()
	logger := ctx.Logger()
	listeners := entityListeners(ctx)
	start := time.Now()

	logger.Debug(LogMsgEntityStart,
		zap.String(LogFieldEntity, e.name),
		zap.String(LogFieldProcessID, ctx.ProcessID()))
	for _, l := range listeners {
		l.OnEntityEntry(ectx, e)
	}

	defer func() {
		for _, l := range listeners {
			l.OnEntityExit(ectx, e, result, err)
		}
		logger.Debug(LogMsgEntityEnd,
			zap.String(LogFieldEntity, e.name),
			zap.Duration(LogFieldDuration, time.Since(start)),
			zap.Error(err))
		if topLevel {
			err = multierr.Append(err, ectx.CloseAll())
		}
	}()

	return ectx.engine().interp.ExecuteTag(ectx, e.Root())
}

// entityRoot is the behavior of an entity's root container. The result is
// the value recorded by a return tag, or the children's results.
type entityRoot struct{}

func (entityRoot) Execute(ctx *Context, tag *Tag) (any, error) {
	results, err := tag.ExecuteChildren(ctx)
	if err != nil {
		return nil, err
	}

	owner := ctx.FindContextForEntity(tag.Entity())
	if owner != nil && owner.Returning() {
		v := owner.InvocationResult()
		owner.SetInvocationResult(nil)
		owner.SetReturning(false)
		return v, nil
	}
	return results.OrNil(), nil
}
