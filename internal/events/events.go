// Package events defines the structural events a front end feeds into a
// build. The set of event and value variants is closed; the driver rejects
// anything else.
package events

import (
	"qconv/internal/flow"
	"qconv/internal/ir"
	"qconv/internal/qubits"
	"qconv/internal/source"
)

// Event is one structural event with its host source position
type Event interface {
	Pos() source.Position
	event()
}

// Assign binds Name to Value
type Assign struct {
	Position source.Position
	Name     string
	Value    Value
}

// Declare introduces Name as a typed variable with no value
type Declare struct {
	Position source.Position
	Name     string
	Kind     ir.Kind
	Size     int
}

// Measure is a measurement call whose result is discarded
type Measure struct {
	Position source.Position
	Target   qubits.Identifier // nil measures every qubit referenced so far
}

// Gate applies an opaque named gate
type Gate struct {
	Position source.Position
	Name     string
	Targets  []qubits.Identifier
}

// ForLoop iterates Var over range(Start, Stop, Step)
type ForLoop struct {
	Position source.Position
	Var      string
	Start    int
	Stop     int
	Step     int
	Body     []Event
}

// WhileLoop repeats Body while Cond holds
type WhileLoop struct {
	Position source.Position
	Cond     Value
	Body     []Event
}

// Branch selects Then or Else on Cond
type Branch struct {
	Position source.Position
	Cond     Value
	Then     []Event
	Else     []Event
}

// EarlyExit is a break or continue
type EarlyExit struct {
	Position source.Position
	Kind     flow.ExitKind
}

// Subroutine defines a separately built unit
type Subroutine struct {
	Position source.Position
	Name     string
	Body     []Event
}

// Call invokes a subroutine
type Call struct {
	Position source.Position
	Name     string
}

// Unsupported is a host construct the front end could not map to an event
type Unsupported struct {
	Position  source.Position
	Construct string
}

func (e *Assign) Pos() source.Position      { return e.Position }
func (e *Declare) Pos() source.Position     { return e.Position }
func (e *Measure) Pos() source.Position     { return e.Position }
func (e *Gate) Pos() source.Position        { return e.Position }
func (e *ForLoop) Pos() source.Position     { return e.Position }
func (e *WhileLoop) Pos() source.Position   { return e.Position }
func (e *Branch) Pos() source.Position      { return e.Position }
func (e *EarlyExit) Pos() source.Position   { return e.Position }
func (e *Subroutine) Pos() source.Position  { return e.Position }
func (e *Call) Pos() source.Position        { return e.Position }
func (e *Unsupported) Pos() source.Position { return e.Position }

func (*Assign) event()      {}
func (*Declare) event()     {}
func (*Measure) event()     {}
func (*Gate) event()        {}
func (*ForLoop) event()     {}
func (*WhileLoop) event()   {}
func (*Branch) event()      {}
func (*EarlyExit) event()   {}
func (*Subroutine) event()  {}
func (*Call) event()        {}
func (*Unsupported) event() {}

// Value is the right-hand side of an assignment or a condition
type Value interface {
	value()
}

// Literal is a freshly constructed typed value, e.g. IntVar(5)
type Literal struct {
	Kind ir.Kind
	Text string
	Size int
}

// Untyped is a plain host value with no IR type, e.g. 123 or a tuple
type Untyped struct {
	Text string
}

// Ref reads the current binding of another name
type Ref struct {
	Name string
}

// MeasureCall is a measurement used as a value
type MeasureCall struct {
	Target qubits.Identifier
}

// QubitValue binds a name to qubits
type QubitValue struct {
	Target qubits.Identifier
}

func (Literal) value()     {}
func (Untyped) value()     {}
func (Ref) value()         {}
func (MeasureCall) value() {}
func (QubitValue) value()  {}

// Body returns the nested event lists of a control event
func Body(ev Event) [][]Event {
	switch e := ev.(type) {
	case *ForLoop:
		return [][]Event{e.Body}
	case *WhileLoop:
		return [][]Event{e.Body}
	case *Branch:
		return [][]Event{e.Then, e.Else}
	}
	return nil
}
