package internal

import (
	"fmt"
	"strings"
)

// binaryLevels lists binary operators from lowest to highest precedence
var binaryLevels = [][]ExprTokenType{
	{ExprTokenTypeOr},
	{ExprTokenTypeAnd},
	{ExprTokenTypeEq, ExprTokenTypeNeq},
	{ExprTokenTypeLt, ExprTokenTypeGt, ExprTokenTypeLte, ExprTokenTypeGte},
}

// ExprParser parses expression tokens into an AST
type ExprParser struct {
	tokens []ExprToken
	pos    int
}

// NewExprParser creates a new expression parser
func NewExprParser(tokens []ExprToken) *ExprParser {
	return &ExprParser{tokens: tokens}
}

// Parse parses the whole token stream into one expression
func (p *ExprParser) Parse() (ExprNode, error) {
	if p.peek().Type == ExprTokenTypeEOF {
		return nil, NewExprParseError(ErrMsgExprEmptyExpression, 0, "")
	}

	node, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.Type != ExprTokenTypeEOF {
		return nil, NewExprParseError(ErrMsgExprUnexpectedToken, tok.Pos, tok.Value)
	}
	return node, nil
}

// parseBinary parses the operators of binaryLevels[level] and above
func (p *ExprParser) parseBinary(level int) (ExprNode, error) {
	if level >= len(binaryLevels) {
		return p.parseUnary()
	}

	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchAny(binaryLevels[level]...)
		if !ok {
			return left, nil
		}
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = NewBinary(left, op, right)
	}
}

func (p *ExprParser) parseUnary() (ExprNode, error) {
	if _, ok := p.matchAny(ExprTokenTypeNot); ok {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NewUnary(ExprTokenTypeNot, right), nil
	}
	return p.parsePrimary()
}

func (p *ExprParser) parsePrimary() (ExprNode, error) {
	tok := p.advance()

	switch tok.Type {
	case ExprTokenTypeString, ExprTokenTypeNumber, ExprTokenTypeBool, ExprTokenTypeNil:
		return NewLiteral(tok.Literal), nil

	case ExprTokenTypeIdentifier:
		if err := validatePath(tok); err != nil {
			return nil, err
		}
		if _, ok := p.matchAny(ExprTokenTypeLParen); ok {
			return p.finishCall(tok.Value)
		}
		return NewIdentifier(tok.Value), nil

	case ExprTokenTypeLParen:
		inner, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		if _, ok := p.matchAny(ExprTokenTypeRParen); !ok {
			return nil, NewExprParseError(ErrMsgExprExpectedRParen, p.peek().Pos, "")
		}
		return inner, nil

	case ExprTokenTypeEOF:
		return nil, NewExprParseError(ErrMsgExprUnexpectedEOF, tok.Pos, "")
	}

	return nil, NewExprParseError(ErrMsgExprUnexpectedToken, tok.Pos, tok.Value)
}

func (p *ExprParser) finishCall(callee string) (ExprNode, error) {
	var args []ExprNode
	if _, ok := p.matchAny(ExprTokenTypeRParen); ok {
		return NewCall(callee, args), nil
	}

	for {
		arg, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if _, ok := p.matchAny(ExprTokenTypeComma); !ok {
			break
		}
	}

	if _, ok := p.matchAny(ExprTokenTypeRParen); !ok {
		return nil, NewExprParseError(ErrMsgExprExpectedRParen, p.peek().Pos, "")
	}
	return NewCall(callee, args), nil
}

// validatePath rejects identifiers with empty member segments (a..b, a.)
func validatePath(tok ExprToken) error {
	for _, seg := range strings.Split(tok.Value, PathSeparator) {
		if seg == "" {
			return NewExprParseError(ErrMsgExprBadMemberPath, tok.Pos, tok.Value)
		}
	}
	return nil
}

// matchAny consumes the current token if it has one of the given types
func (p *ExprParser) matchAny(types ...ExprTokenType) (ExprTokenType, bool) {
	cur := p.peek().Type
	for _, t := range types {
		if cur == t {
			p.advance()
			return t, true
		}
	}
	return "", false
}

func (p *ExprParser) peek() ExprToken {
	if p.pos >= len(p.tokens) {
		last := 0
		if len(p.tokens) > 0 {
			last = p.tokens[len(p.tokens)-1].Pos
		}
		return ExprToken{Type: ExprTokenTypeEOF, Pos: last}
	}
	return p.tokens[p.pos]
}

func (p *ExprParser) advance() ExprToken {
	tok := p.peek()
	if tok.Type != ExprTokenTypeEOF {
		p.pos++
	}
	return tok
}

// ExprParseError represents an error during expression parsing
type ExprParseError struct {
	Message string
	Pos     int
	Detail  string
}

// NewExprParseError creates a new expression parse error
func NewExprParseError(message string, pos int, detail string) *ExprParseError {
	return &ExprParseError{Message: message, Pos: pos, Detail: detail}
}

// Error implements the error interface
func (e *ExprParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s at position %d: %s", e.Message, e.Pos, e.Detail)
	}
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}

// Expression parser error messages
const (
	ErrMsgExprEmptyExpression = "empty expression"
	ErrMsgExprUnexpectedToken = "unexpected token"
	ErrMsgExprExpectedRParen  = "expected closing parenthesis"
	ErrMsgExprUnexpectedEOF   = "unexpected end of expression"
	ErrMsgExprBadMemberPath   = "empty member name in path"
)

// ParseExpression tokenizes and parses an expression body
func ParseExpression(expr string) (ExprNode, error) {
	tokens, err := NewExprTokenizer(expr).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewExprParser(tokens).Parse()
}
