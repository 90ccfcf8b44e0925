package paxml

var keyCallScope = NewInternalKey("call scope")

// callTag invokes another entity. Its children run first in the new scope
// so param tags can bind the callee's parameters there; the callee then
// adopts that scope as its entity context.
type callTag struct{}

func (callTag) InvokesEntity() {}

func (callTag) Validate(tag *Tag) error {
	if !tag.HasAttr(AttrTarget) {
		return NewMissingAttributeError(AttrTarget, tag.Name())
	}
	return nil
}

func (callTag) Execute(ctx *Context, tag *Tag) (any, error) {
	name, err := tag.EvalString(ctx, AttrTarget, "")
	if err != nil {
		return nil, err
	}
	target, err := ctx.engine().Locate(ctx.GoContext(), name)
	if err != nil {
		return nil, err
	}

	sub := ctx.NewChild()
	defer sub.SetAsCurrent()()

	sub.SetInternal(keyCallScope, true, false)
	_, err = tag.ExecuteChildren(sub)
	sub.RemoveInternal(keyCallScope, false)
	if err != nil {
		return nil, err
	}

	saved := ctx.InvocationResult()
	defer ctx.SetInvocationResult(saved)
	return target.Execute(sub)
}

// paramTag binds one parameter of the enclosing call
type paramTag struct{}

func (paramTag) Execute(ctx *Context, tag *Tag) (any, error) {
	if _, ok := ctx.LocalInternal(keyCallScope, false); !ok {
		return nil, NewBuildError(ErrMsgParamOutsideCall, tag.Name(), tag.Line())
	}
	name, err := tag.EvalString(ctx, AttrName, DefaultParameterName)
	if err != nil {
		return nil, err
	}
	v, err := tagValue(ctx, tag)
	if err != nil {
		return nil, err
	}
	return nil, ctx.AddConst(name, v)
}
