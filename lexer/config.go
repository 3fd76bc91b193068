package lexer

// Syntax holds the delimiters and the newline-trimming policy. A Syntax is
// owned by an engine and shared read-only by every lexer it creates.
type Syntax struct {
	PrintOpen          string
	PrintClose         string
	ExecuteOpen        string
	ExecuteClose       string
	CommentOpen        string
	CommentClose       string
	WhitespaceTrim     string
	InterpolationOpen  string
	InterpolationClose string

	// NewLineTrimming removes the first newline following a close delimiter.
	NewLineTrimming bool
}

// DefaultSyntax returns the default Pebble syntax.
func DefaultSyntax() Syntax {
	return Syntax{
		PrintOpen:          "{{",
		PrintClose:         "}}",
		ExecuteOpen:        "{%",
		ExecuteClose:       "%}",
		CommentOpen:        "{#",
		CommentClose:       "#}",
		WhitespaceTrim:     "-",
		InterpolationOpen:  "#{",
		InterpolationClose: "}",
		NewLineTrimming:    true,
	}
}
