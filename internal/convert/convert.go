// Package convert drives a build: it opens a conversion context, routes each
// structural event to the component that handles it and closes the context
// into a finished Program.
package convert

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"

	"qconv/internal/errors"
	"qconv/internal/events"
	"qconv/internal/flow"
	"qconv/internal/hoist"
	"qconv/internal/ir"
	"qconv/internal/measure"
	"qconv/internal/program"
	"qconv/internal/qubits"
	"qconv/internal/source"
)

var log = commonlog.GetLogger("qconv.convert")

// Build converts unit on a fresh context opened from scope. On failure the
// context is aborted and no Program is returned.
func Build(scope *program.Scope, unit []events.Event) (*ir.Program, error) {
	ctx, err := scope.Open()
	if err != nil {
		return nil, err
	}
	b := newBuilder(scope, ctx, nil)
	if err := b.unit(unit); err != nil {
		ctx.Abort(err)
		return nil, err
	}
	prog, err := ctx.Close()
	if err != nil {
		return nil, err
	}
	log.Infof("built %d statement(s), %d subroutine(s), %d qubit(s)",
		len(prog.Statements), len(prog.Subroutines), prog.NumQubits)
	return prog, nil
}

type builder struct {
	scope   *program.Scope
	ctx     *program.Context
	parent  *builder
	emitter *measure.Emitter
	plan    *hoist.Plan
}

func newBuilder(scope *program.Scope, ctx *program.Context, parent *builder) *builder {
	return &builder{scope: scope, ctx: ctx, parent: parent, emitter: measure.NewEmitter(ctx)}
}

func (b *builder) unit(unit []events.Event) error {
	plan, err := hoist.Classify(b.ctx, unit)
	if err != nil {
		return err
	}
	b.plan = plan
	if hoisted := plan.Hoisted(); len(hoisted) > 0 {
		log.Debugf("%s: hoisting %s", b.ctx.Name(), strings.Join(hoisted, ", "))
	}
	if err := plan.Prologue(b.ctx); err != nil {
		return err
	}
	return b.block(unit)
}

func (b *builder) block(evs []events.Event) error {
	for _, ev := range evs {
		if err := b.event(ev); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) event(ev events.Event) error {
	switch e := ev.(type) {
	case *events.Assign:
		return b.plan.Assign(b.ctx, e)
	case *events.Declare:
		return b.plan.Declare(b.ctx, e)
	case *events.Measure:
		_, err := b.emitter.Measure(e.Target, "", e.Position)
		return err
	case *events.Gate:
		return b.gate(e)
	case *events.ForLoop:
		return b.forLoop(e)
	case *events.WhileLoop:
		return b.whileLoop(e)
	case *events.Branch:
		return b.branch(e)
	case *events.EarlyExit:
		return b.earlyExit(e)
	case *events.Subroutine:
		return b.subroutine(e)
	case *events.Call:
		return b.call(e)
	case *events.Unsupported:
		return b.ctx.Checker().Unsupported(e.Construct, e.Position)
	default:
		return errors.Unsupported(fmt.Sprintf("event %T", ev), ev.Pos())
	}
}

func (b *builder) gate(e *events.Gate) error {
	var operands []ir.Qubit
	for _, target := range e.Targets {
		qs, err := b.ctx.Resolver().Resolve(target)
		if err != nil {
			return errors.At(errors.As(err), e.Position)
		}
		operands = append(operands, qs...)
	}
	if len(operands) == 0 {
		return errors.Unsupported(fmt.Sprintf("gate '%s' with no qubit operand", e.Name), e.Position)
	}
	return b.ctx.Append(&ir.Gate{Name: e.Name, Qubits: operands})
}

func (b *builder) forLoop(e *events.ForLoop) error {
	if e.Step == 0 {
		return errors.Unsupported("range with a zero step", e.Position)
	}
	v, err := b.ctx.NewVariable(e.Var, ir.KindInt, 0)
	if err != nil {
		return errors.At(errors.As(err), e.Position)
	}
	// the loop header declares the induction variable
	v.Declared = true

	prev, existed := b.ctx.Bindings().Set(e.Var, program.Binding{
		Kind:   program.BindVariable,
		Var:    v,
		Qubits: qubits.Dynamic{Expr: e.Var, Start: e.Start, Stop: e.Stop, Step: e.Step},
	})

	b.ctx.Checker().EnterLoop()
	body, err := b.body(e.Body)
	if err != nil {
		return err
	}
	if err := b.ctx.Checker().ExitLoop(e.Position); err != nil {
		return err
	}

	b.ctx.Variables().Release(v)
	b.ctx.Bindings().Restore(e.Var, prev, existed)

	return b.ctx.Append(&ir.ForLoop{Var: v, Start: e.Start, Stop: e.Stop, Step: e.Step, Body: body})
}

func (b *builder) whileLoop(e *events.WhileLoop) error {
	cond, refresh, err := b.condition(e.Cond, e.Position)
	if err != nil {
		return err
	}

	b.ctx.Checker().EnterLoop()
	if err := b.ctx.PushBlock(); err != nil {
		return err
	}
	if err := b.block(e.Body); err != nil {
		return err
	}
	// a measured condition is measured again before the next test
	if refresh != nil {
		if err := refresh(); err != nil {
			return err
		}
	}
	body, err := b.ctx.PopBlock()
	if err != nil {
		return err
	}
	if err := b.ctx.Checker().ExitLoop(e.Position); err != nil {
		return err
	}
	return b.ctx.Append(&ir.WhileLoop{Cond: cond, Body: body})
}

func (b *builder) branch(e *events.Branch) error {
	cond, _, err := b.condition(e.Cond, e.Position)
	if err != nil {
		return err
	}

	b.ctx.Checker().EnterBranch()
	then, err := b.body(e.Then)
	if err != nil {
		return err
	}
	els, err := b.body(e.Else)
	if err != nil {
		return err
	}
	if err := b.ctx.Checker().ExitBranch(e.Position); err != nil {
		return err
	}
	return b.ctx.Append(&ir.If{Cond: cond, Then: then, Else: els})
}

func (b *builder) body(evs []events.Event) ([]ir.Statement, error) {
	if err := b.ctx.PushBlock(); err != nil {
		return nil, err
	}
	if err := b.block(evs); err != nil {
		return nil, err
	}
	return b.ctx.PopBlock()
}

// condition lowers a loop or branch condition to an operand. A measured
// condition also returns the function that measures it again.
func (b *builder) condition(cond events.Value, pos source.Position) (ir.Operand, func() error, error) {
	switch v := cond.(type) {
	case events.MeasureCall:
		// the qubits are fixed here; a loop body may reference new ones
		qs, err := b.emitter.Resolve(v.Target, pos)
		if err != nil {
			return nil, nil, err
		}
		bits, err := b.emitter.MeasureQubits(qs, "", pos)
		if err != nil {
			return nil, nil, err
		}
		if bits.IsVector() {
			return nil, nil, conditionMismatch(bits.TypeName(0), pos)
		}
		refresh := func() error { return b.emitter.MeasureInto(bits, qs, pos) }
		return bits, refresh, nil
	case events.Ref:
		bd, ok := b.ctx.Bindings().Get(v.Name)
		if !ok {
			return nil, nil, errors.UndefinedName(v.Name, pos)
		}
		switch bd.Kind {
		case program.BindVariable:
			if (bd.Var.Kind != ir.KindBool && bd.Var.Kind != ir.KindBit) || bd.Var.IsVector() {
				return nil, nil, conditionMismatch(bd.Var.TypeName(b.ctx.Config().IntWidth), pos)
			}
			return bd.Var, nil, nil
		case program.BindUntyped:
			return b.condition(events.Untyped{Text: bd.Text}, pos)
		default:
			return nil, nil, errors.Unsupported(fmt.Sprintf("qubit '%s' used as a condition", v.Name), pos)
		}
	case events.Literal:
		if v.Kind != ir.KindBool {
			return nil, nil, conditionMismatch(v.Kind.String(), pos)
		}
		return ir.Literal{Kind: ir.KindBool, Text: v.Text}, nil, nil
	case events.Untyped:
		if !strings.EqualFold(v.Text, "true") && !strings.EqualFold(v.Text, "false") {
			return nil, nil, conditionMismatch("untyped", pos)
		}
		return ir.Literal{Kind: ir.KindBool, Text: v.Text}, nil, nil
	default:
		return nil, nil, errors.Unsupported(fmt.Sprintf("condition %T", cond), pos)
	}
}

func conditionMismatch(got string, pos source.Position) error {
	return errors.New(errors.KindTypeMismatch, fmt.Sprintf("condition must be bool or bit, got %s", got), pos).
		WithHelp("measure a single qubit or use a bool variable").
		Build()
}

func (b *builder) earlyExit(e *events.EarlyExit) error {
	if err := b.ctx.Checker().OnEarlyExit(e.Kind, e.Position); err != nil {
		return err
	}
	if e.Kind == flow.Continue {
		return b.ctx.Append(&ir.Continue{})
	}
	return b.ctx.Append(&ir.Break{})
}

// subroutine builds the body in a nested frame that shares the register and
// sees the qubit names bound so far
func (b *builder) subroutine(e *events.Subroutine) error {
	if b.ctx.Nesting().Depth() > 0 {
		return errors.Unsupported(fmt.Sprintf("definition of '%s' inside a control block", e.Name), e.Position)
	}
	if b.defined(e.Name) {
		return errors.Unsupported(fmt.Sprintf("redefinition of subroutine '%s'", e.Name), e.Position)
	}

	nested, err := b.scope.Open(program.Reentrant(), program.Named(e.Name))
	if err != nil {
		return errors.At(errors.As(err), e.Position)
	}
	for _, name := range b.ctx.Bindings().Names() {
		if bd, _ := b.ctx.Bindings().Get(name); bd.Kind == program.BindQubit {
			nested.Bindings().Set(name, bd)
		}
	}

	sb := newBuilder(b.scope, nested, b)
	if err := sb.unit(e.Body); err != nil {
		nested.Abort(err)
		return err
	}
	prog, err := nested.Close()
	if err != nil {
		return err
	}

	for _, inner := range prog.Subroutines {
		if err := b.ctx.AddSubroutine(inner); err != nil {
			return errors.At(errors.As(err), e.Position)
		}
	}
	if err := b.ctx.AddSubroutine(&ir.Subroutine{Name: e.Name, Body: prog.Statements}); err != nil {
		return errors.At(errors.As(err), e.Position)
	}
	log.Debugf("%s: defined subroutine %q", b.ctx.Name(), e.Name)
	return nil
}

func (b *builder) defined(name string) bool {
	for f := b; f != nil; f = f.parent {
		if f.ctx.HasSubroutine(name) {
			return true
		}
	}
	return false
}

func (b *builder) call(e *events.Call) error {
	if !b.defined(e.Name) {
		return errors.UndefinedName(e.Name, e.Position)
	}
	return b.ctx.Append(&ir.Call{Name: e.Name})
}
