package qubits

import (
	"fmt"

	"qconv/internal/errors"
	"qconv/internal/ir"
	"qconv/internal/source"
)

// Identifier names one or more qubits
type Identifier interface {
	qubitIdentifier()
	String() string
}

// Index is a qubit addressed by its position in the global register
type Index int

// Name is a host name bound to a qubit identifier
type Name string

// List is an ordered iterable of identifiers; duplicates are preserved
type List []Identifier

// All stands for every qubit referenced so far, expanded when resolved
type All struct{}

// Dynamic is a run-time qubit index such as a loop induction variable.
// The expression takes the values of range(Start, Stop, Step); they reach
// the register only when the identifier is resolved.
type Dynamic struct {
	Expr  string
	Start int
	Stop  int
	Step  int
}

func (Index) qubitIdentifier()   {}
func (Name) qubitIdentifier()    {}
func (List) qubitIdentifier()    {}
func (All) qubitIdentifier()     {}
func (Dynamic) qubitIdentifier() {}

func (i Index) String() string   { return fmt.Sprintf("%d", int(i)) }
func (n Name) String() string    { return string(n) }
func (All) String() string       { return "all" }
func (d Dynamic) String() string { return d.Expr }

func (l List) String() string {
	s := "["
	for i, id := range l {
		if i > 0 {
			s += ", "
		}
		s += id.String()
	}
	return s + "]"
}

// IsIdentifier reports whether v can be resolved to qubits
func IsIdentifier(v any) bool {
	switch v.(type) {
	case Identifier, int, []int:
		return true
	default:
		return false
	}
}

// FromValue converts a host value accepted by IsIdentifier
func FromValue(v any) (Identifier, bool) {
	switch x := v.(type) {
	case Identifier:
		return x, true
	case int:
		return Index(x), true
	case []int:
		l := make(List, len(x))
		for i, index := range x {
			l[i] = Index(index)
		}
		return l, true
	default:
		return nil, false
	}
}

// Lookup resolves a host name to the qubit identifier bound to it
type Lookup func(name string) (Identifier, bool)

const maxNameDepth = 32

// Resolver maps identifiers to ordered qubit references, recording every
// static index in the global register
type Resolver struct {
	register *Register
	lookup   Lookup
}

// NewResolver creates a resolver over register. lookup may be nil.
func NewResolver(register *Register, lookup Lookup) *Resolver {
	return &Resolver{register: register, lookup: lookup}
}

// Register returns the global register the resolver records into
func (r *Resolver) Register() *Register { return r.register }

// WithRegister returns a resolver sharing the lookup but recording into reg
func (r *Resolver) WithRegister(reg *Register) *Resolver {
	return &Resolver{register: reg, lookup: r.lookup}
}

// Resolve returns the qubits named by id. A nil id means every qubit
// referenced so far; with an empty register that is an empty sequence.
func (r *Resolver) Resolve(id Identifier) ([]ir.Qubit, error) {
	if id == nil {
		id = All{}
	}
	var out []ir.Qubit
	if err := r.resolve(id, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resolver) resolve(id Identifier, depth int, out *[]ir.Qubit) error {
	switch q := id.(type) {
	case Index:
		if err := r.register.Add(int(q)); err != nil {
			return err
		}
		*out = append(*out, ir.Qubit{Index: int(q)})
	case All:
		for _, index := range r.register.Snapshot() {
			*out = append(*out, ir.Qubit{Index: index})
		}
	case List:
		for _, elem := range q {
			if err := r.resolve(elem, depth, out); err != nil {
				return err
			}
		}
	case Dynamic:
		if err := r.register.AddRange(q.Start, q.Stop, q.Step); err != nil {
			return err
		}
		*out = append(*out, ir.Qubit{Expr: q.Expr})
	case Name:
		if depth >= maxNameDepth {
			return errors.Unsupported(fmt.Sprintf("qubit name chain through '%s'", q), source.Position{})
		}
		if r.lookup == nil {
			return errors.UndefinedName(string(q), source.Position{})
		}
		bound, ok := r.lookup(string(q))
		if !ok {
			return errors.UndefinedName(string(q), source.Position{})
		}
		return r.resolve(bound, depth+1, out)
	default:
		return errors.Unsupported(fmt.Sprintf("qubit identifier %T", id), source.Position{})
	}
	return nil
}

func qubitName(index int) string {
	return fmt.Sprintf("qubit %d", index)
}
