// internal/render/errors.go
package render

import "errors"

var (
	// ErrSyntax reports a malformed expression block.
	ErrSyntax = errors.New("template syntax error")
	// ErrMissingField reports a reference to data that is not present.
	ErrMissingField = errors.New("missing field")
	// ErrEvaluation reports a type or call error while evaluating.
	ErrEvaluation = errors.New("evaluation error")
	// ErrMarkup reports a failed markup to HTML conversion.
	ErrMarkup = errors.New("markup conversion failed")
)
