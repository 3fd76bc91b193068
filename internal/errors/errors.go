// Package errors defines the error type shared by every stage of the engine.
package errors

import (
	goerrors "errors"
	"fmt"
)

// ErrorKind describes the class of an error.
type ErrorKind int

const (
	// ErrSyntax is raised by the lexer.
	ErrSyntax ErrorKind = iota
	// ErrParse is raised by the parser: unknown tags, malformed grammar,
	// duplicate macro or import aliases.
	ErrParse
	// ErrAttributeNotFound is a strict-mode read of a missing member.
	ErrAttributeNotFound
	// ErrRootAttributeNotFound is a strict-mode read of a missing or null
	// root variable.
	ErrRootAttributeNotFound
	// ErrMethodAccessDenied is raised when an access validator vetoes a member.
	ErrMethodAccessDenied
	// ErrEvaluation covers runtime failures: bad operands, unknown
	// filters/tests/functions, missing parents, failed cache bodies.
	ErrEvaluation
	// ErrRenderLimitExceeded is raised when the render-size cap trips.
	ErrRenderLimitExceeded
	// ErrTemplateNotFound is raised when a loader cannot supply a template.
	ErrTemplateNotFound
	// ErrConfig is raised for invalid engine configuration.
	ErrConfig
)

func (k ErrorKind) String() string {
	switch k {
	case ErrSyntax:
		return "syntax error"
	case ErrParse:
		return "parse error"
	case ErrAttributeNotFound:
		return "attribute not found"
	case ErrRootAttributeNotFound:
		return "root attribute not found"
	case ErrMethodAccessDenied:
		return "method access denied"
	case ErrEvaluation:
		return "evaluation error"
	case ErrRenderLimitExceeded:
		return "render limit exceeded"
	case ErrTemplateNotFound:
		return "template not found"
	case ErrConfig:
		return "configuration error"
	default:
		return "error"
	}
}

// Error represents an error that occurred while compiling or rendering a
// template. Line is 1-indexed; zero means unknown.
type Error struct {
	Kind    ErrorKind
	Message string
	Line    int
	Name    string // template name
	Source  string // template source (for %+v output)
	Cause   error

	// Attribute is the variable or member name for the attribute-not-found kinds.
	Attribute string
	DebugInfo *DebugInfo
}

// New creates a new error.
func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates a new error with a formatted message.
func Newf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new error caused by err.
func Wrap(kind ErrorKind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Cause: err}
}

func (e *Error) Error() string {
	switch {
	case e.Name != "" && e.Line > 0:
		return fmt.Sprintf("%s: %s (%s:%d)", e.Kind, e.Message, e.Name, e.Line)
	case e.Line > 0:
		return fmt.Sprintf("%s: %s (line %d)", e.Kind, e.Message, e.Line)
	case e.Name != "":
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Format implements fmt.Formatter. The %+v verb renders the error together
// with a source excerpt and the causal chain.
func (e *Error) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v':
		if f.Flag('+') {
			formatErrorWithDebug(f, e, true)
			return
		}
		_, _ = fmt.Fprint(f, e.Error())
	case 's':
		_, _ = fmt.Fprint(f, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(f, "%q", e.Error())
	}
}

// WithLine sets the line unless one is already known.
func (e *Error) WithLine(line int) *Error {
	if e.Line == 0 {
		e.Line = line
	}
	return e
}

// WithName sets the template name unless one is already known.
func (e *Error) WithName(name string) *Error {
	if e.Name == "" {
		e.Name = name
	}
	return e
}

// WithSource attaches the template source.
func (e *Error) WithSource(source string) *Error {
	if e.Source == "" {
		e.Source = source
	}
	return e
}

// WithDebugInfo attaches a snapshot of the variables referenced near the
// failing node.
func (e *Error) WithDebugInfo(info DebugInfo) *Error {
	e.DebugInfo = &info
	return e
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var target *Error
	for err != nil {
		if !goerrors.As(err, &target) {
			return false
		}
		if target.Kind == kind {
			return true
		}
		err = target.Cause
	}
	return false
}
