package internal

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ExprTokenType represents the type of an expression token
type ExprTokenType string

// Expression token type constants
const (
	ExprTokenTypeIdentifier ExprTokenType = "IDENT"
	ExprTokenTypeString     ExprTokenType = "STRING"
	ExprTokenTypeNumber     ExprTokenType = "NUMBER"
	ExprTokenTypeBool       ExprTokenType = "BOOL"
	ExprTokenTypeNil        ExprTokenType = "NIL"
	ExprTokenTypeLParen     ExprTokenType = "LPAREN"
	ExprTokenTypeRParen     ExprTokenType = "RPAREN"
	ExprTokenTypeComma      ExprTokenType = "COMMA"

	// Operators
	ExprTokenTypeAnd ExprTokenType = "AND"
	ExprTokenTypeOr  ExprTokenType = "OR"
	ExprTokenTypeNot ExprTokenType = "NOT"
	ExprTokenTypeEq  ExprTokenType = "EQ"
	ExprTokenTypeNeq ExprTokenType = "NEQ"
	ExprTokenTypeLt  ExprTokenType = "LT"
	ExprTokenTypeGt  ExprTokenType = "GT"
	ExprTokenTypeLte ExprTokenType = "LTE"
	ExprTokenTypeGte ExprTokenType = "GTE"

	ExprTokenTypeEOF ExprTokenType = "EOF"
)

// symbolOperators maps operator spellings to token types, longest first
var symbolOperators = []struct {
	text string
	typ  ExprTokenType
}{
	{"&&", ExprTokenTypeAnd},
	{"||", ExprTokenTypeOr},
	{"==", ExprTokenTypeEq},
	{"!=", ExprTokenTypeNeq},
	{"<=", ExprTokenTypeLte},
	{">=", ExprTokenTypeGte},
	{"!", ExprTokenTypeNot},
	{"<", ExprTokenTypeLt},
	{">", ExprTokenTypeGt},
	{"(", ExprTokenTypeLParen},
	{")", ExprTokenTypeRParen},
	{",", ExprTokenTypeComma},
}

// wordOperators are the keyword spellings accepted for operators and literals.
// Scripts written for the JEXL dialect use these forms.
var wordOperators = map[string]ExprTokenType{
	"and":   ExprTokenTypeAnd,
	"or":    ExprTokenTypeOr,
	"not":   ExprTokenTypeNot,
	"eq":    ExprTokenTypeEq,
	"ne":    ExprTokenTypeNeq,
	"lt":    ExprTokenTypeLt,
	"gt":    ExprTokenTypeGt,
	"le":    ExprTokenTypeLte,
	"ge":    ExprTokenTypeGte,
	"true":  ExprTokenTypeBool,
	"false": ExprTokenTypeBool,
	"nil":   ExprTokenTypeNil,
	"null":  ExprTokenTypeNil,
}

// Expression keyword constants
const (
	ExprKeywordTrue  = "true"
	ExprKeywordFalse = "false"
	ExprKeywordNil   = "nil"
)

// ExprToken represents a token in an expression
type ExprToken struct {
	Type    ExprTokenType
	Value   string
	Pos     int
	Literal any // string, float64, bool or nil for literal tokens
}

// String returns the string representation of the token
func (t ExprToken) String() string {
	if t.Value != "" {
		return fmt.Sprintf("%s(%s)", t.Type, t.Value)
	}
	return string(t.Type)
}

// ExprTokenizer tokenizes expression bodies
type ExprTokenizer struct {
	input string
	pos   int
}

// NewExprTokenizer creates a new expression tokenizer
func NewExprTokenizer(input string) *ExprTokenizer {
	return &ExprTokenizer{input: input}
}

// Tokenize converts the input into tokens terminated by an EOF token
func (t *ExprTokenizer) Tokenize() ([]ExprToken, error) {
	var tokens []ExprToken
	for {
		for t.pos < len(t.input) && unicode.IsSpace(rune(t.input[t.pos])) {
			t.pos++
		}
		if t.pos >= len(t.input) {
			return append(tokens, ExprToken{Type: ExprTokenTypeEOF, Pos: t.pos}), nil
		}

		tok, err := t.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

func (t *ExprTokenizer) next() (ExprToken, error) {
	start := t.pos
	ch := t.input[t.pos]

	switch {
	case ch == '"' || ch == '\'':
		return t.readString()
	case isDigit(ch) || (ch == '.' && t.pos+1 < len(t.input) && isDigit(t.input[t.pos+1])):
		return t.readNumber()
	case unicode.IsLetter(rune(ch)) || ch == '_':
		return t.readWord(), nil
	}

	for _, op := range symbolOperators {
		if strings.HasPrefix(t.input[t.pos:], op.text) {
			t.pos += len(op.text)
			return ExprToken{Type: op.typ, Value: op.text, Pos: start}, nil
		}
	}

	return ExprToken{}, NewExprTokenError(ErrMsgExprUnexpectedChar, start, string(ch))
}

func (t *ExprTokenizer) readString() (ExprToken, error) {
	start := t.pos
	quote := t.input[t.pos]
	t.pos++

	var sb strings.Builder
	for t.pos < len(t.input) {
		ch := t.input[t.pos]
		t.pos++
		switch {
		case ch == quote:
			s := sb.String()
			return ExprToken{Type: ExprTokenTypeString, Value: s, Pos: start, Literal: s}, nil
		case ch == '\\' && t.pos < len(t.input):
			sb.WriteByte(unescape(t.input[t.pos]))
			t.pos++
		default:
			sb.WriteByte(ch)
		}
	}

	return ExprToken{}, NewExprTokenError(ErrMsgExprUnterminatedStr, start, "")
}

func unescape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return ch
	}
}

func (t *ExprTokenizer) readNumber() (ExprToken, error) {
	start := t.pos
	seenDot := false
	for t.pos < len(t.input) {
		ch := t.input[t.pos]
		if ch == '.' && !seenDot {
			seenDot = true
		} else if !isDigit(ch) {
			break
		}
		t.pos++
	}

	text := t.input[start:t.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return ExprToken{}, NewExprTokenError(ErrMsgExprInvalidNumber, start, text)
	}
	return ExprToken{Type: ExprTokenTypeNumber, Value: text, Pos: start, Literal: n}, nil
}

// readWord reads an identifier, a dotted member path, or a keyword
func (t *ExprTokenizer) readWord() ExprToken {
	start := t.pos
	for t.pos < len(t.input) {
		ch := rune(t.input[t.pos])
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '_' && ch != '.' {
			break
		}
		t.pos++
	}
	word := t.input[start:t.pos]

	typ, ok := wordOperators[word]
	if !ok {
		return ExprToken{Type: ExprTokenTypeIdentifier, Value: word, Pos: start}
	}
	tok := ExprToken{Type: typ, Value: word, Pos: start}
	if typ == ExprTokenTypeBool {
		tok.Literal = word == ExprKeywordTrue
	}
	return tok
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// ExprTokenError represents an error during expression tokenization
type ExprTokenError struct {
	Message string
	Pos     int
	Detail  string
}

// NewExprTokenError creates a new expression token error
func NewExprTokenError(message string, pos int, detail string) *ExprTokenError {
	return &ExprTokenError{Message: message, Pos: pos, Detail: detail}
}

// Error implements the error interface
func (e *ExprTokenError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s at position %d: %s", e.Message, e.Pos, e.Detail)
	}
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}

// Expression tokenizer error messages
const (
	ErrMsgExprUnexpectedChar  = "unexpected character"
	ErrMsgExprUnterminatedStr = "unterminated string literal"
	ErrMsgExprInvalidNumber   = "invalid number format"
)
