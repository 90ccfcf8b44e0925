package paxml

// TagIndex addresses a tag inside its entity's arena
type TagIndex int

// Well-known tag indices
const (
	NoTag   TagIndex = -1
	RootTag TagIndex = 0
)

// Tag is one executable node of an entity
type Tag struct {
	entity   *Entity
	index    TagIndex
	parent   TagIndex
	children []TagIndex

	name string
	id   string
	line int

	attrs     map[string]*Expression
	attrOrder []string
	text      *Expression

	desc     *TagDescriptor
	behavior Behavior
}

// Name returns the tag name
func (t *Tag) Name() string { return t.name }

// ID returns the id under which the result is stored, empty if none
func (t *Tag) ID() string { return t.id }

// Line returns the source line
func (t *Tag) Line() int { return t.line }

// Entity returns the owning entity
func (t *Tag) Entity() *Entity { return t.entity }

// Index returns the tag's arena index
func (t *Tag) Index() TagIndex { return t.index }

// Descriptor returns the tag kind descriptor
func (t *Tag) Descriptor() *TagDescriptor { return t.desc }

// Behavior returns the tag's execution logic
func (t *Tag) Behavior() Behavior { return t.behavior }

// Parent returns the parent tag, nil for the entity root
func (t *Tag) Parent() *Tag {
	if t.parent == NoTag {
		return nil
	}
	return t.entity.Tag(t.parent)
}

// Children returns the child tags in order
func (t *Tag) Children() []*Tag {
	out := make([]*Tag, len(t.children))
	for i, idx := range t.children {
		out[i] = t.entity.Tag(idx)
	}
	return out
}

// PreviousSibling returns the sibling executed just before t
func (t *Tag) PreviousSibling() *Tag {
	parent := t.Parent()
	if parent == nil {
		return nil
	}
	for i, idx := range parent.children {
		if idx == t.index {
			if i == 0 {
				return nil
			}
			return t.entity.Tag(parent.children[i-1])
		}
	}
	return nil
}

// Attr returns a compiled attribute
func (t *Tag) Attr(name string) (*Expression, bool) {
	e, ok := t.attrs[name]
	return e, ok
}

// HasAttr reports whether the attribute is set
func (t *Tag) HasAttr(name string) bool {
	_, ok := t.attrs[name]
	return ok
}

// AttrNames returns the attribute names in declaration order
func (t *Tag) AttrNames() []string {
	return append([]string(nil), t.attrOrder...)
}

// Text returns the compiled text body, nil if the tag has none
func (t *Tag) Text() *Expression { return t.text }

// Eval evaluates an attribute; an absent attribute yields nil
func (t *Tag) Eval(ctx *Context, attr string) (any, error) {
	e, ok := t.attrs[attr]
	if !ok {
		return nil, nil
	}
	return e.Evaluate(ctx)
}

// EvalString evaluates an attribute as text, or returns def if absent
func (t *Tag) EvalString(ctx *Context, attr, def string) (string, error) {
	e, ok := t.attrs[attr]
	if !ok {
		return def, nil
	}
	return e.EvaluateString(ctx)
}

// Body evaluates the text body; a tag without text yields nil
func (t *Tag) Body(ctx *Context) (any, error) {
	if t.text == nil {
		return nil, nil
	}
	return t.text.Evaluate(ctx)
}

// ExecuteChildren runs the children of t through ctx's interpreter
func (t *Tag) ExecuteChildren(ctx *Context) (ResultList, error) {
	return ctx.engine().interp.ExecuteChildren(ctx, t)
}
