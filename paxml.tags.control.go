package paxml

var keyBranchRan = NewInternalKey("branch ran")

// ifTag runs its children when its test attribute is true. The outcome is
// recorded in the enclosing context for a following else.
type ifTag struct{}

func (ifTag) BeforeExecute(ctx *Context, _ *Tag) error {
	ctx.RemoveInternal(keyBranchRan, false)
	return nil
}

func (ifTag) Execute(ctx *Context, tag *Tag) (any, error) {
	results, err := tag.ExecuteChildren(ctx)
	if err != nil {
		return nil, err
	}
	ctx.SetInternal(keyBranchRan, true, false)
	return results.OrNil(), nil
}

func (ifTag) OnNotExecuted(ctx *Context, _ *Tag) error {
	ctx.SetInternal(keyBranchRan, false, false)
	return nil
}

// elseTag runs its children unless an earlier branch of the chain ran. An
// else with a test of its own acts as else-if.
type elseTag struct{}

func (elseTag) Execute(ctx *Context, tag *Tag) (any, error) {
	if branchRan(ctx) {
		return nil, nil
	}
	results, err := tag.ExecuteChildren(ctx)
	if err != nil {
		return nil, err
	}
	ctx.SetInternal(keyBranchRan, true, false)
	return results.OrNil(), nil
}

func branchRan(ctx *Context) bool {
	v, _ := ctx.Internal(keyBranchRan, false)
	ran, _ := v.(bool)
	return ran
}

// groupTag runs its children and returns their results
type groupTag struct{}

func (groupTag) Execute(ctx *Context, tag *Tag) (any, error) {
	results, err := tag.ExecuteChildren(ctx)
	if err != nil {
		return nil, err
	}
	return results.OrNil(), nil
}
