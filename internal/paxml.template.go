package internal

import (
	"fmt"
	"strings"
)

// PartKind identifies the kind of a template part
type PartKind int

// Part kind constants
const (
	PartKindLiteral PartKind = iota
	PartKindStrict
	PartKindLenient
)

// String returns the string representation of the part kind
func (k PartKind) String() string {
	switch k {
	case PartKindStrict:
		return "STRICT"
	case PartKindLenient:
		return "LENIENT"
	default:
		return "LITERAL"
	}
}

// TemplatePart is one literal run or one evaluable body of a template
type TemplatePart struct {
	Kind    PartKind
	Literal string   // text for literal parts
	Body    string   // raw body for evaluable parts
	Node    ExprNode // parsed body for evaluable parts
	Pos     int      // byte offset of the part in the template source
}

// IsExpression reports whether the part must be evaluated
func (p TemplatePart) IsExpression() bool {
	return p.Kind != PartKindLiteral
}

// Template is an immutable compiled sequence of literal and evaluable parts
type Template struct {
	source string
	parts  []TemplatePart
}

// CompileTemplate scans source for ${...} and ?{...} parts.
// $${ and $?{ emit the marker text literally.
func CompileTemplate(source string) (*Template, error) {
	t := &Template{source: source}
	var lit strings.Builder
	litStart := 0

	flush := func() {
		if lit.Len() > 0 {
			t.parts = append(t.parts, TemplatePart{Kind: PartKindLiteral, Literal: lit.String(), Pos: litStart})
			lit.Reset()
		}
	}

	i := 0
	for i < len(source) {
		if source[i] == MarkerEscape && i+1 < len(source) && markerAt(source, i+1) != PartKindLiteral {
			if lit.Len() == 0 {
				litStart = i
			}
			lit.WriteString(source[i+1 : i+3])
			i += 3
			continue
		}

		kind := markerAt(source, i)
		if kind == PartKindLiteral {
			if lit.Len() == 0 {
				litStart = i
			}
			lit.WriteByte(source[i])
			i++
			continue
		}

		bodyStart := i + len(MarkerStrict)
		end := findClose(source, bodyStart)
		if end < 0 {
			return nil, NewTemplateError(ErrMsgTemplateUnclosed, i, source[i:])
		}
		body := source[bodyStart:end]
		if strings.TrimSpace(body) == "" {
			return nil, NewTemplateError(ErrMsgTemplateEmptyBody, i, "")
		}
		node, err := ParseExpression(body)
		if err != nil {
			return nil, &TemplateError{Message: ErrMsgTemplateBadBody, Pos: i, Detail: body, Cause: err}
		}

		flush()
		t.parts = append(t.parts, TemplatePart{Kind: kind, Body: body, Node: node, Pos: i})
		i = end + 1
	}
	flush()

	return t, nil
}

// MustCompileTemplate compiles source and panics on error
func MustCompileTemplate(source string) *Template {
	t, err := CompileTemplate(source)
	if err != nil {
		panic(err)
	}
	return t
}

// markerAt returns the kind of marker starting at i, or PartKindLiteral
func markerAt(s string, i int) PartKind {
	if i+1 >= len(s) {
		return PartKindLiteral
	}
	switch s[i : i+2] {
	case MarkerStrict:
		return PartKindStrict
	case MarkerLenient:
		return PartKindLenient
	}
	return PartKindLiteral
}

// findClose returns the index of the closing brace, skipping quoted strings
func findClose(s string, from int) int {
	var quote byte
	for i := from; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == MarkerClose:
			return i
		}
	}
	return -1
}

// Source returns the original template text
func (t *Template) Source() string {
	return t.source
}

// Parts returns a copy of the compiled parts
func (t *Template) Parts() []TemplatePart {
	out := make([]TemplatePart, len(t.parts))
	copy(out, t.parts)
	return out
}

// IsLiteral reports whether the template has no evaluable parts
func (t *Template) IsLiteral() bool {
	for _, p := range t.parts {
		if p.IsExpression() {
			return false
		}
	}
	return true
}

// References returns the root names referenced by evaluable parts, in order of appearance
func (t *Template) References() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range t.parts {
		if !p.IsExpression() {
			continue
		}
		collectReferences(p.Node, func(name string) {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		})
	}
	return names
}

// Evaluate evaluates the template against scope.
// A template made of a single evaluable part returns that part's native value;
// otherwise the parts are concatenated as a string.
func (t *Template) Evaluate(scope Scope, funcs *FuncRegistry) (any, error) {
	switch len(t.parts) {
	case 0:
		return "", nil
	case 1:
		return t.evaluatePart(t.parts[0], scope, funcs)
	}

	var sb strings.Builder
	for _, p := range t.parts {
		v, err := t.evaluatePart(p, scope, funcs)
		if err != nil {
			return nil, err
		}
		sb.WriteString(Stringify(v))
	}
	return sb.String(), nil
}

// EvaluateString evaluates the template and stringifies the result.
// An absent value renders as the empty string.
func (t *Template) EvaluateString(scope Scope, funcs *FuncRegistry) (string, error) {
	v, err := t.Evaluate(scope, funcs)
	if err != nil {
		return "", err
	}
	return Stringify(v), nil
}

func (t *Template) evaluatePart(p TemplatePart, scope Scope, funcs *FuncRegistry) (any, error) {
	if !p.IsExpression() {
		return p.Literal, nil
	}
	evaluator := NewExprEvaluator(funcs, scope, p.Kind == PartKindStrict)
	return evaluator.Evaluate(p.Node)
}

// String returns the template source
func (t *Template) String() string {
	return t.source
}

// TemplateError represents a malformed template
type TemplateError struct {
	Message string
	Pos     int
	Detail  string
	Cause   error
}

// NewTemplateError creates a new template error
func NewTemplateError(message string, pos int, detail string) *TemplateError {
	return &TemplateError{Message: message, Pos: pos, Detail: detail}
}

// Error implements the error interface
func (e *TemplateError) Error() string {
	msg := fmt.Sprintf("%s at position %d", e.Message, e.Pos)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying parse error
func (e *TemplateError) Unwrap() error {
	return e.Cause
}
