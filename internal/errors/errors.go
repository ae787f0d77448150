package errors

import (
	stderrors "errors"
	"fmt"

	"qconv/internal/source"
)

// Kind classifies build failures. Every kind is fatal to the current build.
type Kind int

const (
	KindContextClosed Kind = iota
	KindUnsupportedFeature
	KindAllocation
	KindTypeMismatch
	KindUndefinedName
	KindSyntax
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindContextClosed:
		return "context closed"
	case KindUnsupportedFeature:
		return "unsupported feature"
	case KindAllocation:
		return "allocation"
	case KindTypeMismatch:
		return "type mismatch"
	case KindUndefinedName:
		return "undefined name"
	case KindSyntax:
		return "syntax"
	case KindConfig:
		return "config"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Code returns the diagnostic code reported for the kind
func (k Kind) Code() string {
	switch k {
	case KindContextClosed:
		return ErrorContextClosed
	case KindUnsupportedFeature:
		return ErrorUnsupportedFeature
	case KindAllocation:
		return ErrorAllocation
	case KindTypeMismatch:
		return ErrorTypeMismatch
	case KindUndefinedName:
		return ErrorUndefinedName
	case KindSyntax:
		return ErrorSyntax
	default:
		return ErrorConfig
	}
}

// Sentinels for errors.Is. A *Error matches the sentinel of its kind.
var (
	ErrContextClosed      = &Error{Kind: KindContextClosed, Message: "context closed"}
	ErrUnsupportedFeature = &Error{Kind: KindUnsupportedFeature, Message: "unsupported feature"}
	ErrAllocation         = &Error{Kind: KindAllocation, Message: "allocation failed"}
	ErrTypeMismatch       = &Error{Kind: KindTypeMismatch, Message: "type mismatch"}
	ErrUndefinedName      = &Error{Kind: KindUndefinedName, Message: "undefined name"}
	ErrSyntax             = &Error{Kind: KindSyntax, Message: "syntax error"}
)

// Error is a positioned build failure
type Error struct {
	Kind     Kind
	Code     string
	Message  string
	Position source.Position
	Length   int
	Notes    []string
	HelpText string
}

func (e *Error) Error() string {
	if e.Position.IsValid() {
		return fmt.Sprintf("%s: %s[%s]: %s", e.Position, e.Kind, e.code(), e.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.code(), e.Message)
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) code() string {
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.Code()
}

// Builder provides a fluent interface for creating build errors
type Builder struct {
	err Error
}

// New creates a new error builder
func New(kind Kind, message string, pos source.Position) *Builder {
	return &Builder{
		err: Error{
			Kind:     kind,
			Code:     kind.Code(),
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// WithLength sets the length of the error span
func (b *Builder) WithLength(length int) *Builder {
	b.err.Length = length
	return b
}

// WithNote adds a note to the error
func (b *Builder) WithNote(note string) *Builder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp adds help text to the error
func (b *Builder) WithHelp(help string) *Builder {
	b.err.HelpText = help
	return b
}

// Build returns the completed error
func (b *Builder) Build() *Error {
	err := b.err
	return &err
}

// Common constructors

// ContextClosed reports an operation on a context that cannot accept it
func ContextClosed(op, reason string) *Error {
	return New(KindContextClosed, fmt.Sprintf("cannot %s: %s", op, reason), source.Position{}).
		WithHelp("open a new conversion context before retrying the build").
		Build()
}

// Unsupported reports a construct the circuit IR cannot represent
func Unsupported(construct string, pos source.Position) *Error {
	return New(KindUnsupportedFeature, fmt.Sprintf("%s is not supported", construct), pos).
		WithLength(len(construct)).
		Build()
}

// EarlyExit reports an unconditional exit from a circuit loop body
func EarlyExit(keyword string, pos source.Position) *Error {
	return New(KindUnsupportedFeature, fmt.Sprintf("'%s' statement inside a loop body is not supported", keyword), pos).
		WithLength(len(keyword)).
		WithNote("circuit loops compile to repeated static or measurement-conditioned blocks").
		WithHelp(fmt.Sprintf("guard the '%s' with a measurement-conditioned branch or restructure the loop", keyword)).
		Build()
}

// Allocation reports exhausted variable or qubit resources
func Allocation(what string, limit int) *Error {
	return New(KindAllocation, fmt.Sprintf("cannot allocate %s: limit of %d reached", what, limit), source.Position{}).
		Build()
}

// TypeMismatch reports an assignment of an incompatible value
func TypeMismatch(name, want, got string, pos source.Position) *Error {
	return New(KindTypeMismatch, fmt.Sprintf("cannot assign %s value to %s variable '%s'", got, want, name), pos).
		WithLength(len(name)).
		Build()
}

// UndefinedName reports an alias of an unbound name
func UndefinedName(name string, pos source.Position) *Error {
	return New(KindUndefinedName, fmt.Sprintf("name '%s' is not bound", name), pos).
		WithLength(len(name)).
		Build()
}

// Syntax reports a host program that failed to parse
func Syntax(message string, pos source.Position) *Error {
	return New(KindSyntax, message, pos).Build()
}

// At returns a copy of err positioned at pos when it has no position yet
func At(err *Error, pos source.Position) *Error {
	if err == nil || err.Position.IsValid() {
		return err
	}
	cp := *err
	cp.Position = pos
	return &cp
}

// As returns the *Error in err's chain. Any other error is reported as an
// unsupported feature carrying err's message.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var be *Error
	if stderrors.As(err, &be) {
		return be
	}
	return New(KindUnsupportedFeature, err.Error(), source.Position{}).Build()
}
