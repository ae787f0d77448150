package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"qconv/internal/errors"
	"qconv/internal/events"
	"qconv/internal/flow"
	"qconv/internal/ir"
	"qconv/internal/qubits"
)

// Host functions with a fixed meaning. Any other call with arguments is a
// gate, any other call without arguments invokes a subroutine.
const (
	fnIntVar  = "IntVar"
	fnBoolVar = "BoolVar"
	fnBitVar  = "BitVar"
	fnMeasure = "measure"
	fnQubit   = "qubit"
	fnQubits  = "qubits"
)

// Lower turns a parsed script into the structural event stream of a build
func Lower(script *Script) ([]events.Event, error) {
	return lowerBlock(script.Statements)
}

func lowerBlock(stmts []*Statement) ([]events.Event, error) {
	out := make([]events.Event, 0, len(stmts))
	for _, s := range stmts {
		ev, err := lowerStatement(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func lowerStatement(s *Statement) (events.Event, error) {
	pos := position(s.Pos)
	switch {
	case s.Let != nil:
		kind, size, err := lowerType(s.Let.Type)
		if err != nil {
			return nil, err
		}
		return &events.Declare{Position: pos, Name: s.Let.Name, Kind: kind, Size: size}, nil
	case s.For != nil:
		return lowerFor(s.For)
	case s.While != nil:
		cond, err := lowerValue(s.While.Cond)
		if err != nil {
			return nil, err
		}
		body, err := lowerBlock(s.While.Body.Statements)
		if err != nil {
			return nil, err
		}
		return &events.WhileLoop{Position: pos, Cond: cond, Body: body}, nil
	case s.If != nil:
		return lowerIf(s.If)
	case s.Def != nil:
		body, err := lowerBlock(s.Def.Body.Statements)
		if err != nil {
			return nil, err
		}
		return &events.Subroutine{Position: pos, Name: s.Def.Name, Body: body}, nil
	case s.Break:
		return &events.EarlyExit{Position: pos, Kind: flow.Break}, nil
	case s.Continue:
		return &events.EarlyExit{Position: pos, Kind: flow.Continue}, nil
	case s.Return != nil:
		return &events.Unsupported{Position: pos, Construct: "return statement"}, nil
	case s.Assign != nil:
		return lowerAssign(s.Assign)
	case s.Call != nil:
		return lowerCall(s.Call.Call)
	}
	return nil, errors.Syntax("empty statement", pos)
}

func lowerType(t *TypeName) (ir.Kind, int, error) {
	pos := position(t.Pos)
	size := 0
	if t.Size != nil {
		n, err := strconv.ParseInt(*t.Size, 0, 32)
		if err != nil || n <= 0 {
			return 0, 0, errors.Syntax(fmt.Sprintf("invalid width %s", *t.Size), pos)
		}
		size = int(n)
	}
	switch t.Name {
	case "int":
		if size != 0 {
			return 0, 0, errors.Syntax("int takes no width", pos)
		}
		return ir.KindInt, 0, nil
	case "bool":
		if size != 0 {
			return 0, 0, errors.Syntax("bool takes no width", pos)
		}
		return ir.KindBool, 0, nil
	case "bit":
		return ir.KindBit, size, nil
	case "qubit":
		return 0, 0, errors.Unsupported("declaration of a qubit variable", pos)
	}
	return 0, 0, errors.Syntax(fmt.Sprintf("unknown type '%s'", t.Name), pos)
}

func lowerFor(f *ForStmt) (events.Event, error) {
	pos := position(f.Pos)
	args := make([]int, len(f.Args))
	for i, a := range f.Args {
		n, err := strconv.ParseInt(a.Value, 0, 32)
		if err != nil {
			return nil, errors.Syntax(fmt.Sprintf("invalid range bound %s", a.String()), position(a.Pos))
		}
		if a.Neg {
			n = -n
		}
		args[i] = int(n)
	}

	loop := &events.ForLoop{Position: pos, Var: f.Var, Step: 1}
	switch len(args) {
	case 1:
		loop.Stop = args[0]
	case 2:
		loop.Start, loop.Stop = args[0], args[1]
	case 3:
		loop.Start, loop.Stop, loop.Step = args[0], args[1], args[2]
	default:
		return nil, errors.Syntax(fmt.Sprintf("range takes 1 to 3 arguments, got %d", len(args)), pos)
	}

	body, err := lowerBlock(f.Body.Statements)
	if err != nil {
		return nil, err
	}
	loop.Body = body
	return loop, nil
}

func lowerIf(s *IfStmt) (events.Event, error) {
	cond, err := lowerValue(s.Cond)
	if err != nil {
		return nil, err
	}
	then, err := lowerBlock(s.Then.Statements)
	if err != nil {
		return nil, err
	}
	br := &events.Branch{Position: position(s.Pos), Cond: cond, Then: then}
	if s.Else == nil {
		return br, nil
	}
	if s.Else.If != nil {
		nested, err := lowerIf(s.Else.If)
		if err != nil {
			return nil, err
		}
		br.Else = []events.Event{nested}
		return br, nil
	}
	br.Else, err = lowerBlock(s.Else.Body.Statements)
	if err != nil {
		return nil, err
	}
	return br, nil
}

func lowerAssign(a *AssignStmt) (events.Event, error) {
	pos := position(a.Pos)
	if c := a.Value.Call; c != nil && !isValueCall(c.Name) {
		return &events.Unsupported{Position: pos, Construct: fmt.Sprintf("use of the result of '%s'", c.Name)}, nil
	}
	value, err := lowerValue(a.Value)
	if err != nil {
		return nil, err
	}
	return &events.Assign{Position: pos, Name: a.Target, Value: value}, nil
}

func lowerCall(c *CallExpr) (events.Event, error) {
	pos := position(c.Pos)
	switch {
	case c.Name == fnMeasure:
		target, err := lowerTargets(c.Args)
		if err != nil {
			return nil, err
		}
		return &events.Measure{Position: pos, Target: target}, nil
	case isValueCall(c.Name):
		return &events.Unsupported{Position: pos, Construct: fmt.Sprintf("discarded result of '%s'", c.Name)}, nil
	case len(c.Args) == 0:
		return &events.Call{Position: pos, Name: c.Name}, nil
	}

	targets := make([]qubits.Identifier, len(c.Args))
	for i, arg := range c.Args {
		id, err := lowerTarget(arg)
		if err != nil {
			return nil, err
		}
		targets[i] = id
	}
	return &events.Gate{Position: pos, Name: c.Name, Targets: targets}, nil
}

func isValueCall(name string) bool {
	switch name {
	case fnIntVar, fnBoolVar, fnBitVar, fnMeasure, fnQubit, fnQubits:
		return true
	}
	return false
}

func lowerValue(e *Expr) (events.Value, error) {
	pos := position(e.Pos)
	switch {
	case e.Call != nil:
		return lowerValueCall(e.Call)
	case e.Number != nil:
		return events.Untyped{Text: *e.Number}, nil
	case e.Ident != nil:
		if isBool(*e.Ident) {
			return events.Untyped{Text: *e.Ident}, nil
		}
		return events.Ref{Name: *e.Ident}, nil
	case e.Tuple != nil && len(e.Tuple.Items) == 1:
		return lowerValue(e.Tuple.Items[0])
	case e.Tuple != nil, e.List != nil:
		return events.Untyped{Text: e.String()}, nil
	}
	return nil, errors.Syntax("empty expression", pos)
}

func lowerValueCall(c *CallExpr) (events.Value, error) {
	pos := position(c.Pos)
	switch c.Name {
	case fnIntVar:
		text, err := literalArg(c, "0", func(e *Expr) bool { return e.Number != nil })
		if err != nil {
			return nil, err
		}
		return events.Literal{Kind: ir.KindInt, Text: text}, nil
	case fnBoolVar:
		text, err := literalArg(c, "false", func(e *Expr) bool { return e.Ident != nil && isBool(*e.Ident) })
		if err != nil {
			return nil, err
		}
		return events.Literal{Kind: ir.KindBool, Text: text}, nil
	case fnBitVar:
		text, err := literalArg(c, "0", func(e *Expr) bool {
			return e.Number != nil && (*e.Number == "0" || *e.Number == "1")
		})
		if err != nil {
			return nil, err
		}
		return events.Literal{Kind: ir.KindBit, Text: text}, nil
	case fnMeasure:
		target, err := lowerTargets(c.Args)
		if err != nil {
			return nil, err
		}
		return events.MeasureCall{Target: target}, nil
	case fnQubit, fnQubits:
		if len(c.Args) == 0 {
			return nil, errors.Syntax(fmt.Sprintf("%s() needs at least one index", c.Name), pos)
		}
		target, err := lowerTargets(c.Args)
		if err != nil {
			return nil, err
		}
		return events.QubitValue{Target: target}, nil
	}
	return nil, errors.Unsupported(fmt.Sprintf("use of the result of '%s'", c.Name), pos)
}

// literalArg returns the single literal argument of a typed constructor, or
// def when it has none
func literalArg(c *CallExpr, def string, ok func(*Expr) bool) (string, error) {
	switch len(c.Args) {
	case 0:
		return def, nil
	case 1:
		if ok(c.Args[0]) {
			return c.Args[0].String(), nil
		}
		return "", errors.Syntax(fmt.Sprintf("%s expects a literal, got %s", c.Name, c.Args[0].String()), position(c.Args[0].Pos))
	}
	return "", errors.Syntax(fmt.Sprintf("%s takes at most one argument", c.Name), position(c.Pos))
}

// lowerTargets maps call arguments to one qubit identifier; no arguments
// means every qubit referenced so far
func lowerTargets(args []*Expr) (qubits.Identifier, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		return lowerTarget(args[0])
	}
	list := make(qubits.List, len(args))
	for i, arg := range args {
		id, err := lowerTarget(arg)
		if err != nil {
			return nil, err
		}
		list[i] = id
	}
	return list, nil
}

func lowerTarget(e *Expr) (qubits.Identifier, error) {
	pos := position(e.Pos)
	switch {
	case e.Number != nil:
		n, err := strconv.ParseInt(*e.Number, 0, 32)
		if err != nil {
			return nil, errors.Syntax(fmt.Sprintf("invalid qubit index %s", *e.Number), pos)
		}
		return qubits.Index(n), nil
	case e.Ident != nil && *e.Ident == "all":
		return qubits.All{}, nil
	case e.Ident != nil:
		return qubits.Name(*e.Ident), nil
	case e.List != nil && len(e.List.Items) == 0:
		return qubits.List{}, nil
	case e.List != nil:
		return lowerTargets(e.List.Items)
	case e.Tuple != nil:
		return lowerTargets(e.Tuple.Items)
	}
	return nil, errors.Syntax(fmt.Sprintf("%s is not a qubit identifier", e.String()), pos)
}

func isBool(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}
