// Package syntax holds source location types shared by the lexer, the
// parser and the error types.
package syntax

import "fmt"

// Span represents a location range in template source.
type Span struct {
	StartLine   int
	StartCol    int
	StartOffset int
	EndLine     int
	EndCol      int
	EndOffset   int
}

// Line returns the (1-indexed) line the span starts on.
func (s Span) Line() int {
	return s.StartLine
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
}
