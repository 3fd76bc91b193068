// Package lexer provides tokenization for Pebble templates.
package lexer

import (
	"fmt"

	"github.com/pebbletemplates/pebble-go/syntax"
)

// TokenType represents the type of a token.
type TokenType int

const (
	// Raw text between tags
	TokenText TokenType = iota

	// Delimiters
	TokenPrintStart   // {{
	TokenPrintEnd     // }}
	TokenExecuteStart // {%
	TokenExecuteEnd   // %}

	// Expression tokens
	TokenName        // identifier
	TokenNumber      // 123 or 123.45
	TokenLong        // 123L
	TokenString      // "string" or 'string'
	TokenOperator    // any registered unary or binary operator
	TokenPunctuation // ( ) [ ] { } ? : . , | =

	// String interpolation
	TokenInterpolationStart // #{
	TokenInterpolationEnd   // }

	TokenEOF
)

// Token represents a single token from the lexer.
type Token struct {
	Type  TokenType
	Value string
	Span  Span
}

// Span represents a location range in source code.
type Span = syntax.Span

// Line returns the line the token starts on.
func (t Token) Line() int {
	return t.Span.StartLine
}

// Test reports whether the token has the given type and, when values are
// given, one of those values.
func (t Token) Test(typ TokenType, values ...string) bool {
	if t.Type != typ {
		return false
	}
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if t.Value == v {
			return true
		}
	}
	return false
}

// String returns a debug representation of the token.
func (t Token) String() string {
	if t.Value == "" {
		return t.Type.String()
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Value)
}

var tokenTypeNames = map[TokenType]string{
	TokenText:               "TEXT",
	TokenPrintStart:         "PRINT_START",
	TokenPrintEnd:           "PRINT_END",
	TokenExecuteStart:       "EXECUTE_START",
	TokenExecuteEnd:         "EXECUTE_END",
	TokenName:               "NAME",
	TokenNumber:             "NUMBER",
	TokenLong:               "LONG",
	TokenString:             "STRING",
	TokenOperator:           "OPERATOR",
	TokenPunctuation:        "PUNCTUATION",
	TokenInterpolationStart: "STRING_INTERPOLATION_START",
	TokenInterpolationEnd:   "STRING_INTERPOLATION_END",
	TokenEOF:                "EOF",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}
