package paxml

import "github.com/itsatony/go-paxml/internal"

// Expression is an immutable compiled template of literal text and ${} or
// ?{} parts.
type Expression struct {
	tmpl *internal.Template
}

// Compile compiles a template
func Compile(source string) (*Expression, error) {
	tmpl, err := internal.CompileTemplate(source)
	if err != nil {
		return nil, err
	}
	return &Expression{tmpl: tmpl}, nil
}

// MustCompile compiles a template and panics on error
func MustCompile(source string) *Expression {
	e, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return e
}

// Evaluate evaluates the expression against ctx. A single evaluable part
// yields its native value; anything else yields a string.
func (e *Expression) Evaluate(ctx *Context) (any, error) {
	return e.tmpl.Evaluate(ctx, ctx.engine().funcs)
}

// EvaluateString evaluates and stringifies. Absent values render as "".
func (e *Expression) EvaluateString(ctx *Context) (string, error) {
	return e.tmpl.EvaluateString(ctx, ctx.engine().funcs)
}

// IsLiteral reports whether the expression has no evaluable parts
func (e *Expression) IsLiteral() bool { return e.tmpl.IsLiteral() }

// Source returns the template text
func (e *Expression) Source() string { return e.tmpl.Source() }

// References returns the root names the expression reads
func (e *Expression) References() []string { return e.tmpl.References() }

// String returns the template text
func (e *Expression) String() string { return e.tmpl.Source() }
