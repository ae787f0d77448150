// Package hoist decides, for every assignment of a conversion unit, whether
// it declares a fresh IR variable, rebinds an existing one or only changes
// what a host name refers to, and where each declaration is placed.
//
// Classification is a first pass over the whole unit; emission replays the
// assignments in order against a conversion context.
package hoist

import (
	"fmt"

	"qconv/internal/config"
	"qconv/internal/errors"
	"qconv/internal/events"
	"qconv/internal/ir"
	"qconv/internal/measure"
	"qconv/internal/program"
	"qconv/internal/qubits"
	"qconv/internal/source"
)

// nameInfo is what the first pass learns about one host name
type nameInfo struct {
	name       string
	order      int
	bindings   int // assignments that reach an IR variable
	typed      bool
	kind       ir.Kind
	size       int
	firstAlias bool
	nested     bool
	pos        source.Position
}

// shadow is the abstract binding of a name while the unit is interpreted
type shadow struct {
	typed   bool
	kind    ir.Kind
	size    int
	loopVar bool
	text    string
	qubits  qubits.Identifier
}

type classifier struct {
	cfg      config.Config
	names    map[string]*nameInfo
	order    []string
	state    map[string]shadow
	owned    map[string]bool
	resolver *qubits.Resolver
}

// Classify runs the first pass over unit. It interprets the unit abstractly
// against a copy of the context's register and bindings, so the context is
// left untouched. Type and name errors are reported here, before any
// statement is emitted.
func Classify(ctx *program.Context, unit []events.Event) (*Plan, error) {
	c := &classifier{
		cfg:   ctx.Config(),
		names: make(map[string]*nameInfo),
		state: make(map[string]shadow),
		owned: make(map[string]bool),
	}
	c.seed(ctx.Bindings())
	c.resolver = qubits.NewResolver(ctx.Register().Clone(), c.lookup)

	if err := c.walk(unit, false); err != nil {
		return nil, err
	}
	return newPlan(c.cfg, c.names, c.order), nil
}

func (c *classifier) seed(b *program.Bindings) {
	for _, name := range b.Names() {
		bd, _ := b.Get(name)
		switch bd.Kind {
		case program.BindVariable:
			c.state[name] = shadow{typed: true, kind: bd.Var.Kind, size: bd.Var.Size, qubits: bd.Qubits}
		case program.BindUntyped:
			c.state[name] = shadow{text: bd.Text}
		case program.BindQubit:
			c.state[name] = shadow{qubits: bd.Qubits}
		}
	}
}

func (c *classifier) lookup(name string) (qubits.Identifier, bool) {
	sh, ok := c.state[name]
	if !ok || sh.qubits == nil {
		return nil, false
	}
	return sh.qubits, true
}

func (c *classifier) walk(unit []events.Event, nested bool) error {
	for _, ev := range unit {
		if err := c.event(ev, nested); err != nil {
			return err
		}
	}
	return nil
}

func (c *classifier) event(ev events.Event, nested bool) error {
	switch e := ev.(type) {
	case *events.Assign:
		return c.assign(e, nested)
	case *events.Declare:
		return c.bindTyped(e.Name, e.Kind, e.Size, false, nested, e.Position)
	case *events.Measure:
		_, err := c.resolve(e.Target, e.Position)
		return err
	case *events.Gate:
		for _, target := range e.Targets {
			if _, err := c.resolve(target, e.Position); err != nil {
				return err
			}
		}
		return nil
	case *events.ForLoop:
		return c.forLoop(e)
	case *events.WhileLoop:
		if err := c.condition(e.Cond, e.Position); err != nil {
			return err
		}
		return c.walk(e.Body, true)
	case *events.Branch:
		if err := c.condition(e.Cond, e.Position); err != nil {
			return err
		}
		if err := c.walk(e.Then, true); err != nil {
			return err
		}
		return c.walk(e.Else, true)
	case *events.Subroutine:
		if nested {
			// rejected when emitted
			return nil
		}
		return c.subroutine(e)
	default:
		// calls, exits and unsupported constructs bind nothing
		return nil
	}
}

// subroutine walks a definition the way its nested build does: a fresh
// frame that sees the qubit names bound so far and records into the same
// register. The body's own names are planned when it is built.
func (c *classifier) subroutine(e *events.Subroutine) error {
	sub := &classifier{
		cfg:   c.cfg,
		names: make(map[string]*nameInfo),
		state: make(map[string]shadow),
		owned: make(map[string]bool),
	}
	for name, sh := range c.state {
		if sh.qubits != nil && !sh.typed {
			sub.state[name] = sh
		}
	}
	sub.resolver = qubits.NewResolver(c.resolver.Register(), sub.lookup)
	return sub.walk(e.Body, false)
}

func (c *classifier) assign(e *events.Assign, nested bool) error {
	if sh, ok := c.state[e.Name]; ok && sh.loopVar {
		return errors.Unsupported(fmt.Sprintf("assignment to loop variable '%s'", e.Name), e.Position)
	}

	switch v := e.Value.(type) {
	case events.Literal:
		return c.bindTyped(e.Name, v.Kind, v.Size, false, nested, e.Position)
	case events.Untyped:
		return c.bindUntyped(e.Name, v.Text, nested, e.Position)
	case events.Ref:
		src, ok := c.state[v.Name]
		if !ok {
			return errors.UndefinedName(v.Name, e.Position)
		}
		switch {
		case src.typed:
			if err := c.bindTyped(e.Name, src.kind, src.size, true, nested, e.Position); err != nil {
				return err
			}
			sh := c.state[e.Name]
			sh.qubits = aliasQubits(e.Name, src.qubits)
			c.state[e.Name] = sh
			return nil
		case src.qubits != nil:
			return c.bindQubits(e.Name, src.qubits, e.Position)
		default:
			return c.bindUntyped(e.Name, src.text, nested, e.Position)
		}
	case events.MeasureCall:
		qs, err := c.resolve(v.Target, e.Position)
		if err != nil {
			return err
		}
		return c.bindTyped(e.Name, ir.KindBit, measure.Width(len(qs)), false, nested, e.Position)
	case events.QubitValue:
		if _, err := c.resolve(v.Target, e.Position); err != nil {
			return err
		}
		return c.bindQubits(e.Name, v.Target, e.Position)
	default:
		return errors.Unsupported(fmt.Sprintf("assigned value %T", e.Value), e.Position)
	}
}

func (c *classifier) info(name string) *nameInfo {
	if info, ok := c.names[name]; ok {
		return info
	}
	info := &nameInfo{name: name, order: len(c.order)}
	c.names[name] = info
	c.order = append(c.order, name)
	return info
}

func (c *classifier) bindTyped(name string, kind ir.Kind, size int, alias, nested bool, pos source.Position) error {
	info := c.info(name)
	if c.owned[name] {
		if info.kind != kind || info.size != size {
			return errors.TypeMismatch(name, typeName(c.cfg, info.kind, info.size), typeName(c.cfg, kind, size), pos)
		}
	} else {
		c.owned[name] = true
		info.typed = true
		info.kind = kind
		info.size = size
		info.firstAlias = alias
		info.nested = nested
		info.pos = pos
	}
	info.bindings++
	c.state[name] = shadow{typed: true, kind: kind, size: size}
	return nil
}

func (c *classifier) bindUntyped(name, text string, nested bool, pos source.Position) error {
	info := c.info(name)
	if !c.owned[name] {
		c.state[name] = shadow{text: text}
		return nil
	}
	if err := checkUntyped(c.cfg, name, info.kind, info.size, text, pos); err != nil {
		return err
	}
	info.bindings++
	c.state[name] = shadow{typed: true, kind: info.kind, size: info.size}
	return nil
}

func (c *classifier) bindQubits(name string, target qubits.Identifier, pos source.Position) error {
	c.info(name)
	if c.owned[name] {
		info := c.names[name]
		return errors.TypeMismatch(name, typeName(c.cfg, info.kind, info.size), "qubit", pos)
	}
	c.state[name] = shadow{qubits: target}
	return nil
}

func (c *classifier) forLoop(e *events.ForLoop) error {
	if e.Step == 0 {
		return errors.Unsupported("range with a zero step", e.Position)
	}
	if c.owned[e.Var] {
		return errors.Unsupported(fmt.Sprintf("loop variable '%s' shadowing a variable of the same name", e.Var), e.Position)
	}
	prev, existed := c.state[e.Var]
	c.state[e.Var] = shadow{
		typed:   true,
		kind:    ir.KindInt,
		loopVar: true,
		qubits:  qubits.Dynamic{Expr: e.Var, Start: e.Start, Stop: e.Stop, Step: e.Step},
	}
	err := c.walk(e.Body, true)
	if existed {
		c.state[e.Var] = prev
	} else {
		delete(c.state, e.Var)
	}
	return err
}

func (c *classifier) condition(cond events.Value, pos source.Position) error {
	switch v := cond.(type) {
	case events.MeasureCall:
		_, err := c.resolve(v.Target, pos)
		return err
	case events.Ref:
		if _, ok := c.state[v.Name]; !ok {
			return errors.UndefinedName(v.Name, pos)
		}
	}
	return nil
}

func (c *classifier) resolve(target qubits.Identifier, pos source.Position) ([]ir.Qubit, error) {
	qs, err := c.resolver.Resolve(target)
	if err != nil {
		return nil, errors.At(errors.As(err), pos)
	}
	return qs, nil
}

func typeName(cfg config.Config, kind ir.Kind, size int) string {
	return (&ir.Variable{Kind: kind, Size: size}).TypeName(cfg.IntWidth)
}
