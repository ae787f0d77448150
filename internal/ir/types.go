package ir

import (
	"fmt"
	"strings"
)

// IR types and structures for circuit programs.
// The IR is a linear statement list with nested control blocks; every
// variable is declared exactly once, before any statement that references it.

// Kind is the storage class of a variable
type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindBit
	KindQubit
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindBit:
		return "bit"
	case KindQubit:
		return "qubit"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// VarID identifies one variable instance within a build frame
type VarID int

// Variable is a typed, named IR slot
type Variable struct {
	ID       VarID
	Name     string
	Kind     Kind
	Size     int // 0 for scalars, otherwise the fixed vector width
	Declared bool
}

// IsVector reports whether the variable has a fixed vector width
func (v *Variable) IsVector() bool { return v.Size > 0 }

// SameType reports whether values of o can be assigned to v
func (v *Variable) SameType(o *Variable) bool {
	return v.Kind == o.Kind && v.Size == o.Size
}

// TypeName renders the variable type; intWidth applies to integer kinds
func (v *Variable) TypeName(intWidth int) string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("int[%d]", intWidth)
	case KindBool:
		return "bool"
	case KindBit, KindQubit:
		if v.IsVector() {
			return fmt.Sprintf("%s[%d]", v.Kind, v.Size)
		}
		return v.Kind.String()
	default:
		return v.Kind.String()
	}
}

func (v *Variable) String() string { return v.Name }

// Operand is the right-hand side of a declaration, assignment or condition
type Operand interface {
	operand()
	String() string
}

// Literal is a typed constant value
type Literal struct {
	Kind Kind
	Text string
}

func (l Literal) String() string {
	switch l.Kind {
	case KindBool:
		return strings.ToLower(l.Text)
	case KindBit:
		if len(l.Text) > 1 {
			return fmt.Sprintf("%q", l.Text)
		}
		return l.Text
	default:
		return l.Text
	}
}

func (*Variable) operand() {}
func (Literal) operand()   {}

// Qubit is a resolved qubit reference: a static index or a dynamic
// expression such as a loop induction variable
type Qubit struct {
	Index int
	Expr  string
}

// IsDynamic reports whether the reference is only known at run time
func (q Qubit) IsDynamic() bool { return q.Expr != "" }

// Statement is one IR statement
type Statement interface {
	statement()
	// Refs returns the variables read or written by this statement itself,
	// excluding nested bodies
	Refs() []*Variable
}

// Declare introduces a variable without an initial value
type Declare struct {
	Var *Variable
}

// DeclareWithInit introduces a variable with an initial value
type DeclareWithInit struct {
	Var  *Variable
	Init Operand
}

// Assign writes Value into Target
type Assign struct {
	Target *Variable
	Value  Operand
}

// Measure writes the measurement outcome of Qubit into Target, or into
// element Index of Target when Index >= 0
type Measure struct {
	Qubit  Qubit
	Target *Variable
	Index  int
}

// Gate applies an opaque named gate to qubits
type Gate struct {
	Name   string
	Qubits []Qubit
}

// ForLoop iterates Var over the half-open range [Start, Stop) by Step
type ForLoop struct {
	Var   *Variable
	Start int
	Stop  int
	Step  int
	Body  []Statement
}

// WhileLoop repeats Body while Cond holds
type WhileLoop struct {
	Cond Operand
	Body []Statement
}

// If selects Then or Else on Cond
type If struct {
	Cond Operand
	Then []Statement
	Else []Statement
}

// Break leaves the innermost loop
type Break struct{}

// Continue starts the next iteration of the innermost loop
type Continue struct{}

// Call invokes a subroutine
type Call struct {
	Name string
}

func (*Declare) statement()         {}
func (*DeclareWithInit) statement() {}
func (*Assign) statement()          {}
func (*Measure) statement()         {}
func (*Gate) statement()            {}
func (*ForLoop) statement()         {}
func (*WhileLoop) statement()       {}
func (*If) statement()              {}
func (*Break) statement()           {}
func (*Continue) statement()        {}
func (*Call) statement()            {}

func (d *Declare) Refs() []*Variable { return []*Variable{d.Var} }

func (d *DeclareWithInit) Refs() []*Variable {
	return append([]*Variable{d.Var}, operandRefs(d.Init)...)
}

func (a *Assign) Refs() []*Variable {
	return append([]*Variable{a.Target}, operandRefs(a.Value)...)
}

func (m *Measure) Refs() []*Variable { return []*Variable{m.Target} }
func (*Gate) Refs() []*Variable      { return nil }

func (f *ForLoop) Refs() []*Variable { return []*Variable{f.Var} }

func (w *WhileLoop) Refs() []*Variable { return operandRefs(w.Cond) }
func (i *If) Refs() []*Variable        { return operandRefs(i.Cond) }
func (*Break) Refs() []*Variable       { return nil }
func (*Continue) Refs() []*Variable    { return nil }
func (*Call) Refs() []*Variable        { return nil }

func operandRefs(op Operand) []*Variable {
	if v, ok := op.(*Variable); ok && v != nil {
		return []*Variable{v}
	}
	return nil
}

// Subroutine is a separately built unit invoked through Call
type Subroutine struct {
	Name string
	Body []Statement
}

// Program represents a finished circuit program
type Program struct {
	Version       string
	IntWidth      int
	QubitRegister string
	NumQubits     int
	Subroutines   []*Subroutine
	Statements    []Statement
}

// Walk visits every statement in program order, descending into nested
// bodies after their enclosing statement. Returning false stops the walk.
func Walk(stmts []Statement, fn func(Statement) bool) bool {
	for _, stmt := range stmts {
		if !fn(stmt) {
			return false
		}
		switch s := stmt.(type) {
		case *ForLoop:
			if !Walk(s.Body, fn) {
				return false
			}
		case *WhileLoop:
			if !Walk(s.Body, fn) {
				return false
			}
		case *If:
			if !Walk(s.Then, fn) || !Walk(s.Else, fn) {
				return false
			}
		}
	}
	return true
}
