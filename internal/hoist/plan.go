package hoist

import (
	"fmt"
	"strconv"
	"strings"

	"qconv/internal/config"
	"qconv/internal/errors"
	"qconv/internal/events"
	"qconv/internal/ir"
	"qconv/internal/measure"
	"qconv/internal/program"
	"qconv/internal/qubits"
	"qconv/internal/source"
)

// Plan is the result of classifying a unit: the names whose bare declaration
// is hoisted to the top of the unit, and the inferred type of each.
type Plan struct {
	policy  config.HoistPolicy
	names   map[string]*nameInfo
	hoisted []string
}

func newPlan(cfg config.Config, names map[string]*nameInfo, order []string) *Plan {
	p := &Plan{policy: cfg.Hoisting, names: names}
	for _, name := range order {
		if p.hoists(names[name]) {
			p.hoisted = append(p.hoisted, name)
		}
	}
	return p
}

func (p *Plan) hoists(info *nameInfo) bool {
	if !info.typed {
		return false
	}
	if info.firstAlias || info.nested {
		return true
	}
	return p.policy == config.HoistRebound && info.bindings > 1
}

// Hoisted returns the names declared at the top of the unit, in order of
// first appearance
func (p *Plan) Hoisted() []string {
	return append([]string(nil), p.hoisted...)
}

// IsHoisted reports whether name receives a bare declaration up front
func (p *Plan) IsHoisted(name string) bool {
	info, ok := p.names[name]
	return ok && p.hoists(info)
}

// Bindings returns how many assignments to name reach an IR variable
func (p *Plan) Bindings(name string) int {
	if info, ok := p.names[name]; ok {
		return info.bindings
	}
	return 0
}

// Prologue allocates and declares every hoisted variable
func (p *Plan) Prologue(ctx *program.Context) error {
	for _, name := range p.hoisted {
		info := p.names[name]
		v, err := ctx.NewVariable(name, info.kind, info.size)
		if err != nil {
			return errors.At(errors.As(err), info.pos)
		}
		if err := ctx.Declare(v); err != nil {
			return errors.At(errors.As(err), info.pos)
		}
		ctx.Bindings().Set(name, program.Binding{Kind: program.BindVariable, Var: v})
	}
	return nil
}

// Declare replays a declaration event. A variable that already exists, for
// instance because it was hoisted, is only type checked.
func (p *Plan) Declare(ctx *program.Context, ev *events.Declare) error {
	if v, ok := ctx.Variables().Lookup(ev.Name); ok {
		return checkType(ctx.Config(), v, ev.Kind, ev.Size, ev.Position)
	}
	v, err := ctx.NewVariable(ev.Name, ev.Kind, ev.Size)
	if err != nil {
		return errors.At(errors.As(err), ev.Position)
	}
	if err := ctx.Declare(v); err != nil {
		return errors.At(errors.As(err), ev.Position)
	}
	ctx.Bindings().Set(ev.Name, program.Binding{Kind: program.BindVariable, Var: v})
	return nil
}

// Assign replays one assignment event in order
func (p *Plan) Assign(ctx *program.Context, ev *events.Assign) error {
	switch v := ev.Value.(type) {
	case events.Literal:
		return p.assignLiteral(ctx, ev.Name, v.Kind, v.Size, v.Text, ev.Position)
	case events.Untyped:
		return p.assignUntyped(ctx, ev.Name, v.Text, ev.Position)
	case events.Ref:
		src, ok := ctx.Bindings().Get(v.Name)
		if !ok {
			return errors.UndefinedName(v.Name, ev.Position)
		}
		switch src.Kind {
		case program.BindVariable:
			return p.assignAlias(ctx, ev.Name, src, ev.Position)
		case program.BindQubit:
			return p.assignQubits(ctx, ev.Name, src, ev.Position)
		default:
			return p.assignUntyped(ctx, ev.Name, src.Text, ev.Position)
		}
	case events.MeasureCall:
		return p.assignMeasure(ctx, ev.Name, v, ev.Position)
	case events.QubitValue:
		return p.assignQubits(ctx, ev.Name, program.Binding{Kind: program.BindQubit, Qubits: v.Target}, ev.Position)
	default:
		return errors.Unsupported(fmt.Sprintf("assigned value %T", ev.Value), ev.Position)
	}
}

func (p *Plan) assignLiteral(ctx *program.Context, name string, kind ir.Kind, size int, text string, pos source.Position) error {
	lit := ir.Literal{Kind: kind, Text: text}
	if target, ok := ctx.Variables().Lookup(name); ok {
		if err := checkType(ctx.Config(), target, kind, size, pos); err != nil {
			return err
		}
		return p.assign(ctx, name, target, lit, pos)
	}

	v, err := ctx.NewVariable(name, kind, size)
	if err != nil {
		return errors.At(errors.As(err), pos)
	}
	if err := ctx.DeclareWithInit(v, lit); err != nil {
		return errors.At(errors.As(err), pos)
	}
	ctx.Bindings().Set(name, program.Binding{Kind: program.BindVariable, Var: v})
	return nil
}

// assignUntyped only reaches the IR when name already owns a variable
func (p *Plan) assignUntyped(ctx *program.Context, name, text string, pos source.Position) error {
	target, ok := ctx.Variables().Lookup(name)
	if !ok {
		ctx.Bindings().Set(name, program.Binding{Kind: program.BindUntyped, Text: text})
		return nil
	}
	if err := checkUntyped(ctx.Config(), name, target.Kind, target.Size, text, pos); err != nil {
		return err
	}
	return p.assign(ctx, name, target, ir.Literal{Kind: target.Kind, Text: text}, pos)
}

// assignAlias copies the source's current variable; later rebinding of the
// source does not change what name holds
func (p *Plan) assignAlias(ctx *program.Context, name string, src program.Binding, pos source.Position) error {
	bd := program.Binding{Kind: program.BindVariable, Qubits: aliasQubits(name, src.Qubits)}
	target, ok := ctx.Variables().Lookup(name)
	if !ok {
		v, err := ctx.NewVariable(name, src.Var.Kind, src.Var.Size)
		if err != nil {
			return errors.At(errors.As(err), pos)
		}
		if err := ctx.DeclareWithInit(v, src.Var); err != nil {
			return errors.At(errors.As(err), pos)
		}
		bd.Var = v
		ctx.Bindings().Set(name, bd)
		return nil
	}
	if target == src.Var {
		return nil
	}
	if err := checkType(ctx.Config(), target, src.Var.Kind, src.Var.Size, pos); err != nil {
		return err
	}
	if err := ctx.Assign(target, src.Var); err != nil {
		return errors.At(errors.As(err), pos)
	}
	bd.Var = target
	ctx.Bindings().Set(name, bd)
	return nil
}

// aliasQubits lets an alias of a loop index address the same qubits under
// its own name. Other sources carry no qubits.
func aliasQubits(name string, id qubits.Identifier) qubits.Identifier {
	d, ok := id.(qubits.Dynamic)
	if !ok {
		return nil
	}
	d.Expr = name
	return d
}

func (p *Plan) assignMeasure(ctx *program.Context, name string, v events.MeasureCall, pos source.Position) error {
	emitter := measure.NewEmitter(ctx)
	target, ok := ctx.Variables().Lookup(name)
	if !ok {
		bits, err := emitter.Measure(v.Target, name, pos)
		if err != nil {
			return err
		}
		ctx.Bindings().Set(name, program.Binding{Kind: program.BindVariable, Var: bits})
		return nil
	}

	bits, err := emitter.Measure(v.Target, "", pos)
	if err != nil {
		return err
	}
	if err := checkType(ctx.Config(), target, bits.Kind, bits.Size, pos); err != nil {
		return err
	}
	return p.assign(ctx, name, target, bits, pos)
}

func (p *Plan) assignQubits(ctx *program.Context, name string, bd program.Binding, pos source.Position) error {
	if target, ok := ctx.Variables().Lookup(name); ok {
		return errors.TypeMismatch(name, target.TypeName(ctx.Config().IntWidth), "qubit", pos)
	}
	if _, err := ctx.Resolver().Resolve(bd.Qubits); err != nil {
		return errors.At(errors.As(err), pos)
	}
	ctx.Bindings().Set(name, program.Binding{Kind: program.BindQubit, Qubits: bd.Qubits})
	return nil
}

func (p *Plan) assign(ctx *program.Context, name string, target *ir.Variable, value ir.Operand, pos source.Position) error {
	if err := ctx.Assign(target, value); err != nil {
		return errors.At(errors.As(err), pos)
	}
	ctx.Bindings().Set(name, program.Binding{Kind: program.BindVariable, Var: target})
	return nil
}

func checkType(cfg config.Config, target *ir.Variable, kind ir.Kind, size int, pos source.Position) error {
	if target.Kind == kind && target.Size == size {
		return nil
	}
	return errors.TypeMismatch(target.Name, target.TypeName(cfg.IntWidth), typeName(cfg, kind, size), pos)
}

// checkUntyped accepts a plain host value for a typed variable: booleans for
// bool, integers for int, 0 or 1 for a scalar bit
func checkUntyped(cfg config.Config, name string, kind ir.Kind, size int, text string, pos source.Position) error {
	got := "untyped"
	switch {
	case strings.EqualFold(text, "true") || strings.EqualFold(text, "false"):
		if kind == ir.KindBool {
			return nil
		}
		got = "bool"
	default:
		if _, err := strconv.Atoi(text); err == nil {
			if kind == ir.KindInt || (kind == ir.KindBit && size == 0 && (text == "0" || text == "1")) {
				return nil
			}
			got = "int"
		}
	}
	return errors.TypeMismatch(name, typeName(cfg, kind, size), got, pos)
}
