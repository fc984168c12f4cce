package colloml

import (
	"fmt"

	"github.com/collomatique/colloml/pkg/ast"
)

// CompileError is a semantic error found while building or checking a
// program. Span points into the source of Module.
type CompileError struct {
	Module string
	Span   ast.Span
	Msg    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s:%s: %s", e.Module, e.Span, e.Msg)
}

// Warning is a non-fatal diagnostic: shadowing, unused identifiers, naming
// conventions. Warnings never stop compilation.
type Warning struct {
	Module string
	Span   ast.Span
	Msg    string
}

func (w *Warning) String() string {
	return fmt.Sprintf("%s:%s: warning: %s", w.Module, w.Span, w.Msg)
}

// EvalError is a runtime evaluation failure: a bad argument from the host,
// division by zero, an out-of-domain cast. Defects in the evaluator itself
// panic instead.
type EvalError struct {
	Span ast.Span
	Msg  string
}

func (e *EvalError) Error() string {
	if e.Span.Len() == 0 && e.Span.Start == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Span, e.Msg)
}

func evalErrorf(span ast.Span, format string, args ...any) *EvalError {
	return &EvalError{Span: span, Msg: fmt.Sprintf(format, args...)}
}
