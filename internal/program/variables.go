package program

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"qconv/internal/errors"
	"qconv/internal/ir"
	"qconv/internal/qubits"
)

// VariableTable allocates the IR variables of one build frame. Each name
// maps to at most one live variable.
type VariableTable struct {
	vars   []*ir.Variable
	byName map[string]*ir.Variable
	limit  int
}

// NewVariableTable creates an empty table. A limit of zero means unbounded.
func NewVariableTable(limit int) *VariableTable {
	return &VariableTable{byName: make(map[string]*ir.Variable), limit: limit}
}

// New allocates a fresh, undeclared variable
func (t *VariableTable) New(name string, kind ir.Kind, size int) (*ir.Variable, error) {
	if t.limit > 0 && len(t.vars) >= t.limit {
		return nil, errors.Allocation(fmt.Sprintf("variable '%s'", name), t.limit)
	}
	if _, err := safecast.Conv[uint32](size); err != nil {
		return nil, errors.New(errors.KindAllocation,
			fmt.Sprintf("cannot allocate %s[%d] '%s': width out of range", kind, size, name), zeroPos).Build()
	}
	if _, taken := t.byName[name]; taken {
		return nil, errors.New(errors.KindAllocation,
			fmt.Sprintf("cannot allocate variable '%s': name already in use", name), zeroPos).Build()
	}
	v := &ir.Variable{
		ID:   ir.VarID(len(t.vars)),
		Name: name,
		Kind: kind,
		Size: size,
	}
	t.vars = append(t.vars, v)
	t.byName[name] = v
	return v, nil
}

// Lookup returns the live variable named name
func (t *VariableTable) Lookup(name string) (*ir.Variable, bool) {
	v, ok := t.byName[name]
	return v, ok
}

// Release frees name for reuse once its variable leaves scope
func (t *VariableTable) Release(v *ir.Variable) {
	if cur, ok := t.byName[v.Name]; ok && cur == v {
		delete(t.byName, v.Name)
	}
}

// Len returns the number of variables ever allocated
func (t *VariableTable) Len() int { return len(t.vars) }

// All returns every allocated variable in allocation order
func (t *VariableTable) All() []*ir.Variable {
	return append([]*ir.Variable(nil), t.vars...)
}

// BindingKind tells what a host name currently refers to
type BindingKind int

const (
	BindVariable BindingKind = iota
	BindUntyped
	BindQubit
)

// Binding is the current meaning of a host name
type Binding struct {
	Kind   BindingKind
	Var    *ir.Variable      // BindVariable
	Text   string            // BindUntyped
	Qubits qubits.Identifier // BindQubit, or a loop index (or an alias of one) usable as a qubit index
}

// Bindings maps host names to their current Binding
type Bindings struct {
	m map[string]Binding
}

// NewBindings creates an empty binding map
func NewBindings() *Bindings {
	return &Bindings{m: make(map[string]Binding)}
}

// Get returns the current binding of name
func (b *Bindings) Get(name string) (Binding, bool) {
	bd, ok := b.m[name]
	return bd, ok
}

// Set rebinds name and returns the previous binding
func (b *Bindings) Set(name string, bd Binding) (Binding, bool) {
	prev, ok := b.m[name]
	b.m[name] = bd
	return prev, ok
}

// Restore puts back a binding returned by Set
func (b *Bindings) Restore(name string, prev Binding, existed bool) {
	if existed {
		b.m[name] = prev
		return
	}
	delete(b.m, name)
}

// Names returns every bound name in sorted order
func (b *Bindings) Names() []string {
	names := make([]string, 0, len(b.m))
	for name := range b.m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Variable returns the IR variable bound to name
func (b *Bindings) Variable(name string) (*ir.Variable, bool) {
	bd, ok := b.m[name]
	if !ok || bd.Kind != BindVariable {
		return nil, false
	}
	return bd.Var, true
}

// Lookup satisfies qubits.Lookup
func (b *Bindings) Lookup(name string) (qubits.Identifier, bool) {
	bd, ok := b.m[name]
	if !ok || bd.Qubits == nil {
		return nil, false
	}
	return bd.Qubits, true
}
