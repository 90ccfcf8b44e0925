package paxml

import (
	"go.uber.org/zap"
)

// ResultList is the flat, ordered result of a container tag's children
type ResultList []any

// Append adds v following the flattening rule: nil is dropped and a
// nested ResultList is spliced in.
func (r ResultList) Append(v any) ResultList {
	switch val := v.(type) {
	case nil:
		return r
	case ResultList:
		return append(r, val...)
	}
	return append(r, v)
}

// OrNil returns nil for an empty list so that an empty aggregate is absent
func (r ResultList) OrNil() any {
	if len(r) == 0 {
		return nil
	}
	return r
}

// Interpreter drives the tag lifecycle
type Interpreter struct {
	logger *zap.Logger
}

// NewInterpreter creates an interpreter
func NewInterpreter(logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{logger: logger}
}

// ExecuteTag runs one tag: push its frame, check its conditions against
// ctx, execute it and store an id result. The frame is popped and the exit
// listeners notified on every path.
func (in *Interpreter) ExecuteTag(ctx *Context, tag *Tag) (result any, err error) {
	stack := ctx.Stack()
	if stack.Dying() || in.returning(ctx) {
		return nil, nil
	}

	faulted := ctx.FaultContext() != nil
	stack.Push(Frame{Entity: tag.entity, Tag: tag.index})
	listeners := tagListeners(ctx)
	for _, l := range listeners {
		l.OnTagEntry(ctx, tag)
	}
	in.logger.Debug(LogMsgTagEntry,
		zap.String(LogFieldTag, tag.name),
		zap.Int(LogFieldLine, tag.line),
		zap.Int(LogFieldDepth, stack.Len()))

	defer func() {
		stack.Pop()
		if err != nil {
			ctx.SetFaultContext(ctx)
			err = wrapTagError(tag, err)
		} else if !faulted {
			// a fault swallowed below this tag leaves no origin behind
			ctx.ClearFaultContext()
		}
		for _, l := range listeners {
			l.OnTagExit(ctx, tag, result, err)
		}
		in.logger.Debug(LogMsgTagExit, zap.String(LogFieldTag, tag.name), zap.Error(err))
	}()

	if h, ok := tag.behavior.(BeforeExecuteHandler); ok {
		if err := h.BeforeExecute(ctx, tag); err != nil {
			return nil, err
		}
	}

	pass, err := in.checkCondition(ctx, tag)
	if err != nil {
		return nil, err
	}
	if !pass {
		in.logger.Debug(LogMsgTagSkipped, zap.String(LogFieldTag, tag.name))
		if h, ok := tag.behavior.(NotExecutedHandler); ok {
			return nil, h.OnNotExecuted(ctx, tag)
		}
		return nil, nil
	}

	result, err = tag.behavior.Execute(ctx, tag)
	if err != nil {
		return nil, err
	}
	if tag.id != "" && tag.desc.SupportsID {
		if err := storeResult(ctx, tag, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ExecuteChildren runs the children of tag left to right and flattens
// their results. It stops early when the chain is exiting or the current
// entity is returning.
func (in *Interpreter) ExecuteChildren(ctx *Context, tag *Tag) (ResultList, error) {
	var results ResultList
	stack := ctx.Stack()
	for _, idx := range tag.children {
		if stack.Dying() || in.returning(ctx) {
			break
		}
		v, err := in.ExecuteTag(ctx, tag.entity.tags[idx])
		if err != nil {
			return results, err
		}
		results = results.Append(v)
	}
	return results, nil
}

func (in *Interpreter) returning(ctx *Context) bool {
	return entityReturning(ctx)
}

func entityReturning(ctx *Context) bool {
	if ctx.Stack().IsEmpty() {
		return false
	}
	owner := ctx.CurrentEntityContext()
	return owner != nil && owner.Returning()
}

// chainStopped reports whether the chain is exiting or the current entity
// is returning
func chainStopped(ctx *Context) bool {
	return ctx.Stack().Dying() || entityReturning(ctx)
}

// checkCondition evaluates the positive and negative condition attributes.
// Declared attributes that are absent on the tag pass.
func (in *Interpreter) checkCondition(ctx *Context, tag *Tag) (bool, error) {
	d := tag.desc
	if d.IfAttr != "" {
		if e, ok := tag.attrs[d.IfAttr]; ok {
			v, err := e.Evaluate(ctx)
			if err != nil {
				return false, err
			}
			if !IsTrue(v) {
				return false, nil
			}
		}
	}
	if d.UnlessAttr != "" {
		if e, ok := tag.attrs[d.UnlessAttr]; ok {
			v, err := e.Evaluate(ctx)
			if err != nil {
				return false, err
			}
			if IsTrue(v) {
				return false, nil
			}
		}
	}
	return true, nil
}

// storeResult binds an id result in the owning entity's context
func storeResult(ctx *Context, tag *Tag, result any) error {
	target := ctx.FindContextForEntity(tag.entity)
	if target == nil {
		target = ctx
	}
	if ctx.ConstOverwritable() || target.ConstOverwritable() {
		target.SetConst(tag.id, result)
		return nil
	}
	return target.AddConst(tag.id, result)
}
