package paxml

import (
	"fmt"
)

// tagValue is the value of a scalar tag: its value attribute, else its text
// body, else the results of its children.
func tagValue(ctx *Context, tag *Tag) (any, error) {
	if tag.HasAttr(AttrValue) {
		return tag.Eval(ctx, AttrValue)
	}
	if tag.Text() != nil {
		return tag.Body(ctx)
	}
	results, err := tag.ExecuteChildren(ctx)
	if err != nil {
		return nil, err
	}
	return results.OrNil(), nil
}

// constTag evaluates its value. The interpreter binds it under the tag id.
type constTag struct{}

func (constTag) Validate(tag *Tag) error {
	if tag.ID() == "" {
		return NewMissingAttributeError("id", tag.Name())
	}
	return nil
}

func (constTag) Execute(ctx *Context, tag *Tag) (any, error) {
	return tagValue(ctx, tag)
}

// dataTag yields its evaluated text body or value attribute
type dataTag struct{}

func (dataTag) Execute(ctx *Context, tag *Tag) (any, error) {
	if tag.Text() != nil {
		return tag.Body(ctx)
	}
	return tag.Eval(ctx, AttrValue)
}

type expressionTag struct{}

func (expressionTag) Validate(tag *Tag) error {
	if !tag.HasAttr(AttrValue) && tag.Text() == nil {
		return NewMissingAttributeError(AttrValue, tag.Name())
	}
	return nil
}

func (expressionTag) Execute(ctx *Context, tag *Tag) (any, error) {
	if tag.HasAttr(AttrValue) {
		return tag.Eval(ctx, AttrValue)
	}
	return tag.Body(ctx)
}

// returnTag records the entity result and ends the current entity
type returnTag struct{}

func (returnTag) Execute(ctx *Context, tag *Tag) (any, error) {
	v, err := tagValue(ctx, tag)
	if err != nil {
		return nil, err
	}
	owner := ctx.CurrentEntityContext()
	if owner == nil {
		owner = ctx
	}
	owner.SetInvocationResult(v)
	owner.SetReturning(true)
	return nil, nil
}

// exitTag ends the whole chain
type exitTag struct{}

func (exitTag) Execute(ctx *Context, _ *Tag) (any, error) {
	ctx.Stack().Die()
	return nil, nil
}

// printTag writes its value as a line to the engine output
type printTag struct{}

func (printTag) Execute(ctx *Context, tag *Tag) (any, error) {
	v, err := tagValue(ctx, tag)
	if err != nil {
		return nil, err
	}
	s := Stringify(v)
	if _, err := fmt.Fprintln(ctx.engine().output, s); err != nil {
		return nil, err
	}
	return s, nil
}
