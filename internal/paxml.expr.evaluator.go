package internal

import (
	"fmt"
	"reflect"
)

// Scope resolves the root names referenced by an expression
type Scope interface {
	// Lookup searches bound values, nearest scope first
	Lookup(name string) (any, bool)
	// Provide asks the registered extension providers for an object under
	// name. Implementations cache hits so later lookups find them directly.
	Provide(name string) (any, bool)
}

// ExprEvaluator evaluates expression AST nodes
type ExprEvaluator struct {
	funcs  *FuncRegistry
	scope  Scope
	strict bool
}

// NewExprEvaluator creates a new expression evaluator.
// A strict evaluator fails on names that resolve to nothing; a lenient one
// treats them as nil.
func NewExprEvaluator(funcs *FuncRegistry, scope Scope, strict bool) *ExprEvaluator {
	return &ExprEvaluator{funcs: funcs, scope: scope, strict: strict}
}

// Evaluate evaluates an expression and returns the result
func (e *ExprEvaluator) Evaluate(node ExprNode) (any, error) {
	switch n := node.(type) {
	case nil:
		return nil, NewExprEvalError(ErrMsgExprNilNode, "")
	case *LiteralNode:
		return n.Value, nil
	case *IdentifierNode:
		return e.resolve(n)
	case *UnaryNode:
		right, err := e.Evaluate(n.Right)
		if err != nil {
			return nil, err
		}
		return !isTruthy(right), nil
	case *BinaryNode:
		return e.evaluateBinary(n)
	case *CallNode:
		return e.evaluateCall(n)
	default:
		return nil, NewExprEvalError(ErrMsgExprUnknownNodeType, fmt.Sprintf("%T", node))
	}
}

// EvaluateBool evaluates an expression and coerces the result to a boolean
func (e *ExprEvaluator) EvaluateBool(node ExprNode) (bool, error) {
	result, err := e.Evaluate(node)
	if err != nil {
		return false, err
	}
	return isTruthy(result), nil
}

// resolve looks up the identifier root, then walks its member path
func (e *ExprEvaluator) resolve(n *IdentifierNode) (any, error) {
	if e.scope == nil {
		return nil, NewExprEvalError(ErrMsgExprNoContext, n.Root)
	}

	v, ok := e.scope.Lookup(n.Root)
	if !ok {
		v, ok = e.scope.Provide(n.Root)
	}
	if !ok {
		if e.strict {
			return nil, NewUnresolvedError(n.Root)
		}
		return nil, nil
	}

	if len(n.Path) == 0 {
		return v, nil
	}
	member, _ := SelectPath(v, n.Path)
	return member, nil
}

func (e *ExprEvaluator) evaluateBinary(n *BinaryNode) (any, error) {
	left, err := e.Evaluate(n.Left)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ExprTokenTypeAnd:
		if !isTruthy(left) {
			return false, nil
		}
		return e.EvaluateBool(n.Right)
	case ExprTokenTypeOr:
		if isTruthy(left) {
			return true, nil
		}
		return e.EvaluateBool(n.Right)
	}

	right, err := e.Evaluate(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ExprTokenTypeEq:
		return compareEqual(left, right), nil
	case ExprTokenTypeNeq:
		return !compareEqual(left, right), nil
	}

	cmp, err := compareOrder(left, right)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ExprTokenTypeLt:
		return cmp < 0, nil
	case ExprTokenTypeGt:
		return cmp > 0, nil
	case ExprTokenTypeLte:
		return cmp <= 0, nil
	case ExprTokenTypeGte:
		return cmp >= 0, nil
	}
	return nil, NewExprEvalError(ErrMsgExprUnknownOperator, string(n.Op))
}

func (e *ExprEvaluator) evaluateCall(n *CallNode) (any, error) {
	args := make([]any, len(n.Args))
	for i, argNode := range n.Args {
		val, err := e.Evaluate(argNode)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	if n.Receiver == nil {
		if e.funcs == nil {
			return nil, NewExprEvalError(ErrMsgExprNoFuncRegistry, n.Name)
		}
		return e.funcs.Call(n.Name, args)
	}

	receiver, err := e.resolve(n.Receiver)
	if err != nil {
		return nil, err
	}
	switch r := receiver.(type) {
	case Callable:
		return r.Call(n.Name, args)
	case nil:
		if e.strict {
			return nil, NewExprEvalError(ErrMsgExprNilReceiver, n.String())
		}
		return nil, nil
	}

	// A map member holding a plain function is callable too
	if fn, ok := SelectMember(receiver, n.Name); ok {
		if f, ok := fn.(func([]any) (any, error)); ok {
			return f(args)
		}
	}
	return nil, NewExprEvalError(ErrMsgExprNotCallable, fmt.Sprintf("%s (%s)", n.String(), reflect.TypeOf(receiver)))
}

// compareEqual checks if two values are equal
func compareEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNumeric(a) && isNumeric(b) {
		an, _ := ToNumber(a)
		bn, _ := ToNumber(b)
		return an == bn
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	return Stringify(a) == Stringify(b)
}

// compareOrder returns -1, 0 or 1. Numbers compare numerically, strings lexically.
func compareOrder(a, b any) (int, error) {
	an, aok := ToNumber(a)
	bn, bok := ToNumber(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1, nil
		case an > bn:
			return 1, nil
		}
		return 0, nil
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		switch {
		case as < bs:
			return -1, nil
		case as > bs:
			return 1, nil
		}
		return 0, nil
	}

	return 0, NewExprEvalError(ErrMsgExprTypeMismatch, fmt.Sprintf("cannot compare %T and %T", a, b))
}

// ExprEvalError represents an expression evaluation error
type ExprEvalError struct {
	Message string
	Detail  string
}

// NewExprEvalError creates a new expression evaluation error
func NewExprEvalError(message, detail string) *ExprEvalError {
	return &ExprEvalError{Message: message, Detail: detail}
}

// Error implements the error interface
func (e *ExprEvalError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// UnresolvedError reports a name referenced by a strict expression that is
// neither bound nor provided by an extension.
type UnresolvedError struct {
	Name string
}

// NewUnresolvedError creates a new unresolved name error
func NewUnresolvedError(name string) *UnresolvedError {
	return &UnresolvedError{Name: name}
}

// Error implements the error interface
func (e *UnresolvedError) Error() string {
	return ErrMsgExprUnknownName + ": " + e.Name
}

// Expression evaluator error messages
const (
	ErrMsgExprNilNode         = "nil expression node"
	ErrMsgExprUnknownNodeType = "unknown expression node type"
	ErrMsgExprNoContext       = "no scope available for variable lookup"
	ErrMsgExprUnknownOperator = "unknown operator"
	ErrMsgExprNoFuncRegistry  = "no function registry available"
	ErrMsgExprTypeMismatch    = "type mismatch in comparison"
	ErrMsgExprUnknownName     = "Unknown const name"
	ErrMsgExprNilReceiver     = "call on nil receiver"
	ErrMsgExprNotCallable     = "receiver has no callable member"
)

// EvaluateExpression parses and evaluates a single expression body
func EvaluateExpression(expr string, funcs *FuncRegistry, scope Scope, strict bool) (any, error) {
	node, err := ParseExpression(expr)
	if err != nil {
		return nil, err
	}
	return NewExprEvaluator(funcs, scope, strict).Evaluate(node)
}
