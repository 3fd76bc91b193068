package pebble

import (
	"github.com/pebbletemplates/pebble-go/internal/errors"
)

// Error represents an error that occurred while compiling or rendering a
// template.
type Error = errors.Error

// ErrorKind describes the class of an error.
type ErrorKind = errors.ErrorKind

const (
	ErrSyntax                = errors.ErrSyntax
	ErrParse                 = errors.ErrParse
	ErrAttributeNotFound     = errors.ErrAttributeNotFound
	ErrRootAttributeNotFound = errors.ErrRootAttributeNotFound
	ErrMethodAccessDenied    = errors.ErrMethodAccessDenied
	ErrEvaluation            = errors.ErrEvaluation
	ErrRenderLimitExceeded   = errors.ErrRenderLimitExceeded
	ErrTemplateNotFound      = errors.ErrTemplateNotFound
	ErrConfig                = errors.ErrConfig
)

// NewError creates a new error with the given kind and message.
func NewError(kind ErrorKind, msg string) *Error {
	return errors.New(kind, msg)
}

// IsKind reports whether err, or any error it wraps, is an *Error of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	return errors.IsKind(err, kind)
}
