package paxml

// coreLibrary provides the control and scalar tags and the util namespace
type coreLibrary struct{}

// CoreLibrary returns the library every engine registers first
func CoreLibrary() TagLibrary { return coreLibrary{} }

func (coreLibrary) Name() string { return CoreLibraryName }

func (coreLibrary) Tags() []TagDescriptor {
	return []TagDescriptor{
		conditional(TagNameGroup, func() Behavior { return groupTag{} }, true),
		{Name: TagNameIf, New: func() Behavior { return ifTag{} }, IfAttr: AttrTest, SupportsID: true},
		{Name: TagNameElse, New: func() Behavior { return elseTag{} }, IfAttr: AttrTest, SupportsID: true},
		conditional(TagNameIterate, func() Behavior { return iterateTag{} }, true),
		conditional(TagNameMutex, func() Behavior { return mutexTag{} }, true),
		conditional(TagNameConst, func() Behavior { return constTag{} }, true),
		conditional(TagNameData, func() Behavior { return dataTag{} }, true),
		conditional(TagNameExpression, func() Behavior { return expressionTag{} }, true),
		conditional(TagNameCall, func() Behavior { return callTag{} }, true),
		{Name: TagNameParam, New: func() Behavior { return paramTag{} }},
		conditional(TagNameReturn, func() Behavior { return returnTag{} }, false),
		conditional(TagNameExit, func() Behavior { return exitTag{} }, false),
		conditional(TagNamePrint, func() Behavior { return printTag{} }, true),
	}
}

func (coreLibrary) Functions(ctx *Context, name string) (any, bool) {
	if name != UtilNamespace {
		return nil, false
	}
	return newUtilNamespace(ctx.Thread()), true
}

// conditional describes a tag kind with the standard if and unless attributes
func conditional(name string, newFn func() Behavior, supportsID bool) TagDescriptor {
	return TagDescriptor{
		Name:       name,
		New:        newFn,
		IfAttr:     AttrIf,
		UnlessAttr: AttrUnless,
		SupportsID: supportsID,
	}
}
