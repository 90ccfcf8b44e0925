package paxml

// EntityBuilder assembles an entity tree the way a parser would: tags are
// opened, given attributes and text, and closed in document order. The
// first error sticks and is returned by Build.
type EntityBuilder struct {
	registry *TagRegistry
	entity   *Entity
	open     []TagIndex
	line     int
	next     int
	err      error
}

// NewEntityBuilder starts an entity. Tag names resolve against registry.
func NewEntityBuilder(name string, registry *TagRegistry) *EntityBuilder {
	b := &EntityBuilder{registry: registry, entity: &Entity{name: name}}
	if name == "" {
		b.err = NewBuildError(ErrMsgEmptyEntityName, "", 0)
	}
	root := &Tag{
		entity: b.entity,
		index:  RootTag,
		parent: NoTag,
		name:   name,
		attrs:  make(map[string]*Expression),
		desc: &TagDescriptor{
			Name: name,
			New:  func() Behavior { return entityRoot{} },
		},
		behavior: entityRoot{},
	}
	b.entity.tags = append(b.entity.tags, root)
	b.open = []TagIndex{RootTag}
	return b
}

// Line sets the source line for the next opened tag
func (b *EntityBuilder) Line(n int) *EntityBuilder {
	b.next = n
	return b
}

// Open starts a child of the innermost open tag
func (b *EntityBuilder) Open(name string) *EntityBuilder {
	if b.err != nil {
		return b
	}
	b.line++
	if b.next > 0 {
		b.line, b.next = b.next, 0
	}
	desc, ok := b.registry.Lookup(name)
	if !ok {
		b.err = NewUnknownTagError(name, b.line)
		return b
	}

	parent := b.open[len(b.open)-1]
	t := &Tag{
		entity:   b.entity,
		index:    TagIndex(len(b.entity.tags)),
		parent:   parent,
		name:     name,
		line:     b.line,
		attrs:    make(map[string]*Expression),
		desc:     desc,
		behavior: desc.New(),
	}
	b.entity.tags = append(b.entity.tags, t)
	b.entity.tags[parent].children = append(b.entity.tags[parent].children, t.index)
	b.open = append(b.open, t.index)
	return b
}

// ID sets the id of the innermost open tag
func (b *EntityBuilder) ID(id string) *EntityBuilder {
	if b.err != nil {
		return b
	}
	t := b.current()
	if !t.desc.SupportsID {
		b.err = NewBuildError(ErrMsgIDNotSupported, t.name, t.line)
		return b
	}
	t.id = id
	return b
}

// Attr sets an attribute of the innermost open tag. The value is compiled
// as a template.
func (b *EntityBuilder) Attr(name, value string) *EntityBuilder {
	if b.err != nil {
		return b
	}
	t := b.current()
	expr, err := Compile(value)
	if err != nil {
		b.err = NewCompileError(t.name, name, t.line, err)
		return b
	}
	if _, exists := t.attrs[name]; !exists {
		t.attrOrder = append(t.attrOrder, name)
	}
	t.attrs[name] = expr
	return b
}

// Text sets the text body of the innermost open tag
func (b *EntityBuilder) Text(text string) *EntityBuilder {
	if b.err != nil {
		return b
	}
	t := b.current()
	expr, err := Compile(text)
	if err != nil {
		b.err = NewCompileError(t.name, "", t.line, err)
		return b
	}
	t.text = expr
	return b
}

// Close ends the innermost open tag
func (b *EntityBuilder) Close() *EntityBuilder {
	if b.err != nil {
		return b
	}
	if len(b.open) == 1 {
		b.err = NewBuildError(ErrMsgUnbalancedClose, b.entity.name, b.line)
		return b
	}
	b.open = b.open[:len(b.open)-1]
	return b
}

// Leaf opens a tag with the given attributes and closes it
func (b *EntityBuilder) Leaf(name string, attrs ...string) *EntityBuilder {
	b.Open(name)
	for i := 0; i+1 < len(attrs); i += 2 {
		b.Attr(attrs[i], attrs[i+1])
	}
	return b.Close()
}

// Build validates every tag and returns the entity
func (b *EntityBuilder) Build() (*Entity, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.open) != 1 {
		t := b.current()
		return nil, NewBuildError(ErrMsgUnclosedTags, t.name, t.line)
	}

	var err error
	b.entity.Walk(func(t *Tag) bool {
		if err != nil {
			return false
		}
		if v, ok := t.behavior.(Validator); ok {
			err = v.Validate(t)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return b.entity, nil
}

// MustBuild builds the entity and panics on error
func (b *EntityBuilder) MustBuild() *Entity {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

func (b *EntityBuilder) current() *Tag {
	return b.entity.tags[b.open[len(b.open)-1]]
}
