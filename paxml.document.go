package paxml

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the YAML form of an entity:
//
//	name: greet
//	tags:
//	  - tag: iterate
//	    attrs:
//	      list: ${people}
//	      var: p
//	    children:
//	      - tag: data
//	        text: Hello ${p}
//
// Several documents may share one stream, separated by "---".
type Document struct {
	Name string        `yaml:"name"`
	Tags []DocumentTag `yaml:"tags,omitempty"`
}

// DocumentTag is one tag of a Document
type DocumentTag struct {
	Tag      string        `yaml:"tag"`
	ID       string        `yaml:"id,omitempty"`
	Line     int           `yaml:"line,omitempty"`
	Attrs    DocumentAttrs `yaml:"attrs,omitempty"`
	Text     *string       `yaml:"text,omitempty"`
	Children []DocumentTag `yaml:"children,omitempty"`
}

// DocumentAttr is one attribute in declaration order
type DocumentAttr struct {
	Name  string
	Value string
}

// DocumentAttrs is an attribute mapping that keeps declaration order
type DocumentAttrs []DocumentAttr

// UnmarshalYAML reads a mapping of scalar values
func (a *DocumentAttrs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return NewDocumentError(ErrMsgDocumentInvalid, errors.New("attrs must be a mapping"))
	}
	out := make(DocumentAttrs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return NewDocumentError(ErrMsgDocumentInvalid, errors.New("attribute "+k.Value+" must be a scalar"))
		}
		out = append(out, DocumentAttr{Name: k.Value, Value: v.Value})
	}
	*a = out
	return nil
}

// MarshalYAML writes the attributes as a mapping in declaration order
func (a DocumentAttrs) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, attr := range a {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: attr.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: attr.Value, Style: yaml.DoubleQuotedStyle})
	}
	return node, nil
}

// DecodeDocuments reads every document of a YAML stream
func DecodeDocuments(data []byte) ([]*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var docs []*Document
	for {
		var doc Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, NewDocumentError(ErrMsgDocumentInvalid, err)
		}
		if doc.Name == "" {
			return nil, NewDocumentError(ErrMsgEmptyEntityName, nil)
		}
		docs = append(docs, &doc)
	}
	if len(docs) == 0 {
		return nil, NewDocumentError(ErrMsgDocumentInvalid, errors.New("no documents"))
	}
	return docs, nil
}

// DecodeDocument reads a single document
func DecodeDocument(data []byte) (*Document, error) {
	docs, err := DecodeDocuments(data)
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

// EncodeDocument writes docs as one YAML stream
func EncodeDocument(docs ...*Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return nil, NewDocumentError(ErrMsgDocumentEncode, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, NewDocumentError(ErrMsgDocumentEncode, err)
	}
	return buf.Bytes(), nil
}

// ParseDocuments decodes a stream and builds every entity against registry
func ParseDocuments(data []byte, registry *TagRegistry) ([]*Entity, error) {
	docs, err := DecodeDocuments(data)
	if err != nil {
		return nil, err
	}
	entities := make([]*Entity, 0, len(docs))
	for _, doc := range docs {
		e, err := doc.Build(registry)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// ParseDocument decodes and builds a single entity
func ParseDocument(data []byte, registry *TagRegistry) (*Entity, error) {
	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, err
	}
	return doc.Build(registry)
}

// Build turns the document into an entity
func (d *Document) Build(registry *TagRegistry) (*Entity, error) {
	b := NewEntityBuilder(d.Name, registry)
	for i := range d.Tags {
		buildTag(b, &d.Tags[i])
	}
	return b.Build()
}

func buildTag(b *EntityBuilder, t *DocumentTag) {
	if t.Line > 0 {
		b.Line(t.Line)
	}
	b.Open(t.Tag)
	if t.ID != "" {
		b.ID(t.ID)
	}
	for _, attr := range t.Attrs {
		b.Attr(attr.Name, attr.Value)
	}
	if t.Text != nil {
		b.Text(*t.Text)
	}
	for i := range t.Children {
		buildTag(b, &t.Children[i])
	}
	b.Close()
}

// DocumentOf converts an entity back to its document form
func DocumentOf(e *Entity) *Document {
	doc := &Document{Name: e.Name()}
	for _, child := range e.Root().Children() {
		doc.Tags = append(doc.Tags, documentTag(child))
	}
	return doc
}

func documentTag(t *Tag) DocumentTag {
	dt := DocumentTag{Tag: t.Name(), ID: t.ID(), Line: t.Line()}
	for _, name := range t.AttrNames() {
		expr, _ := t.Attr(name)
		dt.Attrs = append(dt.Attrs, DocumentAttr{Name: name, Value: expr.Source()})
	}
	if t.Text() != nil {
		text := t.Text().Source()
		dt.Text = &text
	}
	for _, child := range t.Children() {
		dt.Children = append(dt.Children, documentTag(child))
	}
	return dt
}

// documentName extracts the entity name from a source without building it
func documentName(source string) string {
	var head struct {
		Name string `yaml:"name"`
	}
	if err := yaml.NewDecoder(strings.NewReader(source)).Decode(&head); err != nil {
		return ""
	}
	return head.Name
}
