package ir

import (
	stderrors "errors"
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("qconv.ir")

// ErrInvalidProgram is wrapped by every verification failure
var ErrInvalidProgram = stderrors.New("invalid program")

// VerificationPass checks one structural property of a finished program
type VerificationPass interface {
	Name() string
	Description() string
	Check(program *Program) error
}

// Pipeline runs verification passes in order and stops at the first failure
type Pipeline struct {
	passes []VerificationPass
}

// NewPipeline creates a pipeline with the default passes
func NewPipeline() *Pipeline {
	pipeline := &Pipeline{}

	pipeline.AddPass(&DeclareOnce{})
	pipeline.AddPass(&DeclaredBeforeUse{}) // relies on DeclareOnce
	pipeline.AddPass(&MeasureBounds{})
	pipeline.AddPass(&ExitPlacement{})

	return pipeline
}

// AddPass adds a pass to the end of the pipeline
func (p *Pipeline) AddPass(pass VerificationPass) {
	p.passes = append(p.passes, pass)
}

// Run checks program against every pass
func (p *Pipeline) Run(program *Program) error {
	for _, pass := range p.passes {
		if err := pass.Check(program); err != nil {
			log.Debugf("%s failed: %v", pass.Name(), err)
			return fmt.Errorf("%w: %s: %w", ErrInvalidProgram, pass.Name(), err)
		}
	}
	return nil
}

// Verify runs the default pipeline
func Verify(program *Program) error {
	return NewPipeline().Run(program)
}

// units returns the program body and each subroutine body, labelled
func units(program *Program) ([]string, [][]Statement) {
	names := []string{"program"}
	bodies := [][]Statement{program.Statements}
	for _, sub := range program.Subroutines {
		names = append(names, "subroutine "+sub.Name)
		bodies = append(bodies, sub.Body)
	}
	return names, bodies
}

// DeclareOnce rejects a variable declared by more than one statement
type DeclareOnce struct{}

func (*DeclareOnce) Name() string { return "declare-once" }

func (*DeclareOnce) Description() string {
	return "Every variable is declared by exactly one statement"
}

func (*DeclareOnce) Check(program *Program) error {
	seen := make(map[*Variable]bool)
	var err error
	for _, stmt := range program.AllStatements() {
		v := DeclaredVar(stmt)
		if v == nil {
			continue
		}
		if seen[v] {
			err = fmt.Errorf("'%s' is declared twice", v.Name)
			break
		}
		seen[v] = true
	}
	return err
}

// DeclaredBeforeUse rejects a reference that precedes the variable's
// declaration or lies outside the block that declares it. Subroutine bodies
// may also read program-level variables.
type DeclaredBeforeUse struct{}

func (*DeclaredBeforeUse) Name() string { return "declared-before-use" }

func (*DeclaredBeforeUse) Description() string {
	return "Every variable is declared before, and in a block enclosing, any statement that references it"
}

// declScope is one block's declarations, chained to the enclosing block
type declScope struct {
	vars   map[*Variable]bool
	parent *declScope
}

func newDeclScope(parent *declScope) *declScope {
	return &declScope{vars: make(map[*Variable]bool), parent: parent}
}

func (s *declScope) has(v *Variable) bool {
	for ; s != nil; s = s.parent {
		if s.vars[v] {
			return true
		}
	}
	return false
}

func (d *DeclaredBeforeUse) Check(program *Program) error {
	global := newDeclScope(nil)
	for _, stmt := range program.Statements {
		if v := DeclaredVar(stmt); v != nil {
			if _, loop := stmt.(*ForLoop); !loop {
				global.vars[v] = true
			}
		}
	}

	names, bodies := units(program)
	for i, body := range bodies {
		var parent *declScope
		if i > 0 {
			parent = global
		}
		if err := d.block(body, newDeclScope(parent)); err != nil {
			return fmt.Errorf("%s: %w", names[i], err)
		}
	}
	return nil
}

func (d *DeclaredBeforeUse) block(stmts []Statement, scope *declScope) error {
	for _, stmt := range stmts {
		refs := scope
		if v := DeclaredVar(stmt); v != nil {
			if loop, ok := stmt.(*ForLoop); ok {
				// the induction variable lives in the loop body
				refs = newDeclScope(scope)
				refs.vars[loop.Var] = true
			} else {
				scope.vars[v] = true
			}
		}
		for _, v := range stmt.Refs() {
			if !refs.has(v) {
				return fmt.Errorf("'%s' is used before it is declared", v.Name)
			}
		}

		var err error
		switch s := stmt.(type) {
		case *ForLoop:
			err = d.block(s.Body, refs)
		case *WhileLoop:
			err = d.block(s.Body, newDeclScope(scope))
		case *If:
			if err = d.block(s.Then, newDeclScope(scope)); err == nil {
				err = d.block(s.Else, newDeclScope(scope))
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// MeasureBounds checks measurement targets against their widths and static
// qubit indices against the register
type MeasureBounds struct{}

func (*MeasureBounds) Name() string { return "measure-bounds" }

func (*MeasureBounds) Description() string {
	return "Measurements write bit variables within their width and read allocated qubits"
}

func (*MeasureBounds) Check(program *Program) error {
	checkQubit := func(q Qubit) error {
		if !q.IsDynamic() && (q.Index < 0 || q.Index >= program.NumQubits) {
			return fmt.Errorf("qubit %d outside a register of %d", q.Index, program.NumQubits)
		}
		return nil
	}

	var err error
	for _, stmt := range program.AllStatements() {
		switch s := stmt.(type) {
		case *Measure:
			switch {
			case s.Target.Kind != KindBit:
				err = fmt.Errorf("measurement into %s variable '%s'", s.Target.Kind, s.Target.Name)
			case s.Target.IsVector() && (s.Index < 0 || s.Index >= s.Target.Size):
				err = fmt.Errorf("measurement into '%s[%d]' of width %d", s.Target.Name, s.Index, s.Target.Size)
			case !s.Target.IsVector() && s.Index >= 0:
				err = fmt.Errorf("indexed measurement into scalar '%s'", s.Target.Name)
			default:
				err = checkQubit(s.Qubit)
			}
		case *Gate:
			for _, q := range s.Qubits {
				if err = checkQubit(q); err != nil {
					break
				}
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ExitPlacement rejects break and continue outside of a loop body
type ExitPlacement struct{}

func (*ExitPlacement) Name() string { return "exit-placement" }

func (*ExitPlacement) Description() string {
	return "Break and continue only appear inside loop bodies"
}

func (e *ExitPlacement) Check(program *Program) error {
	names, bodies := units(program)
	for i, body := range bodies {
		if err := e.block(body, false); err != nil {
			return fmt.Errorf("%s: %w", names[i], err)
		}
	}
	return nil
}

func (e *ExitPlacement) block(stmts []Statement, inLoop bool) error {
	for _, stmt := range stmts {
		var err error
		switch s := stmt.(type) {
		case *Break:
			if !inLoop {
				err = fmt.Errorf("break outside of a loop")
			}
		case *Continue:
			if !inLoop {
				err = fmt.Errorf("continue outside of a loop")
			}
		case *ForLoop:
			err = e.block(s.Body, true)
		case *WhileLoop:
			err = e.block(s.Body, true)
		case *If:
			if err = e.block(s.Then, inLoop); err == nil {
				err = e.block(s.Else, inLoop)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
