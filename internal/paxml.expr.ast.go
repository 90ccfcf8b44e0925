package internal

import (
	"fmt"
	"strings"
)

// ExprNodeType identifies the type of expression AST node
type ExprNodeType int

// Expression node type constants
const (
	ExprNodeTypeLiteral ExprNodeType = iota
	ExprNodeTypeIdentifier
	ExprNodeTypeUnary
	ExprNodeTypeBinary
	ExprNodeTypeCall
)

var exprNodeTypeNames = map[ExprNodeType]string{
	ExprNodeTypeLiteral:    "LITERAL",
	ExprNodeTypeIdentifier: "IDENTIFIER",
	ExprNodeTypeUnary:      "UNARY",
	ExprNodeTypeBinary:     "BINARY",
	ExprNodeTypeCall:       "CALL",
}

// String returns the string representation of the node type
func (t ExprNodeType) String() string {
	if name, ok := exprNodeTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// ExprNode is the interface for all expression AST nodes
type ExprNode interface {
	Type() ExprNodeType
	String() string
	exprNode()
}

// LiteralNode represents a string, number, bool or nil literal
type LiteralNode struct {
	Value any
}

func (n *LiteralNode) Type() ExprNodeType { return ExprNodeTypeLiteral }
func (n *LiteralNode) exprNode()          {}

func (n *LiteralNode) String() string {
	switch v := n.Value.(type) {
	case nil:
		return ExprKeywordNil
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IdentifierNode is a variable reference with an optional member path (a.b.c)
type IdentifierNode struct {
	Root string
	Path []string
}

func (n *IdentifierNode) Type() ExprNodeType { return ExprNodeTypeIdentifier }
func (n *IdentifierNode) exprNode()          {}

func (n *IdentifierNode) String() string {
	if len(n.Path) == 0 {
		return n.Root
	}
	return n.Root + PathSeparator + strings.Join(n.Path, PathSeparator)
}

// UnaryNode represents a unary operation
type UnaryNode struct {
	Op    ExprTokenType
	Right ExprNode
}

func (n *UnaryNode) Type() ExprNodeType { return ExprNodeTypeUnary }
func (n *UnaryNode) exprNode()          {}

func (n *UnaryNode) String() string {
	return fmt.Sprintf("(%s %s)", n.Op, n.Right)
}

// BinaryNode represents a binary operation
type BinaryNode struct {
	Left  ExprNode
	Op    ExprTokenType
	Right ExprNode
}

func (n *BinaryNode) Type() ExprNodeType { return ExprNodeTypeBinary }
func (n *BinaryNode) exprNode()          {}

func (n *BinaryNode) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left, n.Op, n.Right)
}

// CallNode is a function call. Receiver is set for member calls (util.list(1, 2)).
type CallNode struct {
	Receiver *IdentifierNode
	Name     string
	Args     []ExprNode
}

func (n *CallNode) Type() ExprNodeType { return ExprNodeTypeCall }
func (n *CallNode) exprNode()          {}

func (n *CallNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	name := n.Name
	if n.Receiver != nil {
		name = n.Receiver.String() + PathSeparator + name
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}

// NewLiteral creates a literal node
func NewLiteral(value any) *LiteralNode {
	return &LiteralNode{Value: value}
}

// NewIdentifier splits a dotted name into an identifier node
func NewIdentifier(name string) *IdentifierNode {
	segments := strings.Split(name, PathSeparator)
	return &IdentifierNode{Root: segments[0], Path: segments[1:]}
}

// NewUnary creates a unary operation node
func NewUnary(op ExprTokenType, right ExprNode) *UnaryNode {
	return &UnaryNode{Op: op, Right: right}
}

// NewBinary creates a binary operation node
func NewBinary(left ExprNode, op ExprTokenType, right ExprNode) *BinaryNode {
	return &BinaryNode{Left: left, Op: op, Right: right}
}

// NewCall creates a call node from a possibly dotted callee name
func NewCall(callee string, args []ExprNode) *CallNode {
	idx := strings.LastIndex(callee, PathSeparator)
	if idx < 0 {
		return &CallNode{Name: callee, Args: args}
	}
	return &CallNode{Receiver: NewIdentifier(callee[:idx]), Name: callee[idx+1:], Args: args}
}

// collectReferences reports the root name of every identifier and receiver under node
func collectReferences(node ExprNode, visit func(string)) {
	switch n := node.(type) {
	case *IdentifierNode:
		visit(n.Root)
	case *UnaryNode:
		collectReferences(n.Right, visit)
	case *BinaryNode:
		collectReferences(n.Left, visit)
		collectReferences(n.Right, visit)
	case *CallNode:
		if n.Receiver != nil {
			visit(n.Receiver.Root)
		}
		for _, arg := range n.Args {
			collectReferences(arg, visit)
		}
	}
}
