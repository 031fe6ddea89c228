package compiler

import (
	"errors"
	"fmt"
)

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.Column == 0 {
		return fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// LexError reports a malformed token.
type LexError struct {
	Pos Pos
	Msg string
}

func (e *LexError) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// SyntaxError reports an unexpected or missing token. Snippet holds the
// offending source line when it is available.
type SyntaxError struct {
	Pos     Pos
	Msg     string
	Snippet string
}

func (e *SyntaxError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: %s\n  |> %s", e.Pos, e.Msg, e.Snippet)
}

// Generation failures. CodegenError wraps one of these so callers can test
// with errors.Is.
var (
	ErrUndeclared      = errors.New("undeclared identifier")
	ErrMemoryTarget    = errors.New("invalid memory access target")
	ErrConstantFold    = errors.New("constant cannot be evaluated at compile time")
	ErrAddressing      = errors.New("unsupported addressing mode")
	ErrUnknownLabel    = errors.New("unknown label")
	ErrUnknownFunction = errors.New("unknown function")
	ErrOutsideLoop     = errors.New("statement outside of a loop")
	ErrInvalid         = errors.New("invalid statement")
)

// CodegenError is a generation-time failure tied to a BASIC line.
type CodegenError struct {
	Line int
	Msg  string
	Err  error
}

func (e *CodegenError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

func (e *CodegenError) Unwrap() error { return e.Err }

func genErrorf(line int, kind error, format string, args ...any) error {
	return &CodegenError{Line: line, Msg: fmt.Sprintf(format, args...), Err: kind}
}
