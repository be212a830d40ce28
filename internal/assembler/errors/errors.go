package errors

import "fmt"

// Position represents a location in source code
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// AsmError represents an assembly error with source position
type AsmError struct {
	Pos     Position
	Message string
	Phase   string // "lexer", "preproc", "eval", "parser", "env"
}

func (e *AsmError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Pos, e.Message)
}

// New builds a positioned error for the given phase.
func New(pos Position, phase, format string, args ...any) *AsmError {
	return &AsmError{Pos: pos, Phase: phase, Message: fmt.Sprintf(format, args...)}
}

// ErrorList collects multiple errors, in the order they were recorded
type ErrorList struct {
	Errors []*AsmError
}

func NewErrorList() *ErrorList {
	return &ErrorList{}
}

func (el *ErrorList) Add(pos Position, phase, format string, args ...any) {
	el.Errors = append(el.Errors, New(pos, phase, format, args...))
}

func (el *ErrorList) AddError(err *AsmError) {
	el.Errors = append(el.Errors, err)
}

func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

func (el *ErrorList) String() string {
	s := ""
	for _, e := range el.Errors {
		s += e.Error() + "\n"
	}
	return s
}
