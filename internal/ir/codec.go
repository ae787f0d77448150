package ir

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Binary form of a Program. Variables are interned into one table keyed by
// their position so that subroutine frames with overlapping IDs stay apart.

type wireProgram struct {
	Version       string           `msgpack:"version"`
	IntWidth      int              `msgpack:"int_width"`
	QubitRegister string           `msgpack:"qubit_register"`
	NumQubits     int              `msgpack:"num_qubits"`
	Variables     []wireVariable   `msgpack:"variables"`
	Subroutines   []wireSubroutine `msgpack:"subroutines"`
	Statements    []wireStatement  `msgpack:"statements"`
}

type wireVariable struct {
	Name string `msgpack:"name"`
	Kind Kind   `msgpack:"kind"`
	Size int    `msgpack:"size"`
}

type wireSubroutine struct {
	Name string          `msgpack:"name"`
	Body []wireStatement `msgpack:"body"`
}

type wireOperand struct {
	Var     int    `msgpack:"var"`
	Literal bool   `msgpack:"literal"`
	Kind    Kind   `msgpack:"kind"`
	Text    string `msgpack:"text"`
}

type wireStatement struct {
	Op      string          `msgpack:"op"`
	Var     int             `msgpack:"var"`
	Operand *wireOperand    `msgpack:"operand,omitempty"`
	Qubits  []Qubit         `msgpack:"qubits,omitempty"`
	Index   int             `msgpack:"index"`
	Name    string          `msgpack:"name,omitempty"`
	Range   [3]int          `msgpack:"range"`
	Body    []wireStatement `msgpack:"body,omitempty"`
	Else    []wireStatement `msgpack:"else,omitempty"`
}

const (
	opDeclare         = "declare"
	opDeclareWithInit = "declare_init"
	opAssign          = "assign"
	opMeasure         = "measure"
	opGate            = "gate"
	opFor             = "for"
	opWhile           = "while"
	opIf              = "if"
	opBreak           = "break"
	opContinue        = "continue"
	opCall            = "call"
)

// Marshal encodes a program with msgpack
func Marshal(p *Program) ([]byte, error) {
	enc := &encoder{index: make(map[*Variable]int)}
	wp := wireProgram{
		Version:       p.Version,
		IntWidth:      p.IntWidth,
		QubitRegister: p.QubitRegister,
		NumQubits:     p.NumQubits,
	}
	for _, sub := range p.Subroutines {
		wp.Subroutines = append(wp.Subroutines, wireSubroutine{Name: sub.Name, Body: enc.block(sub.Body)})
	}
	wp.Statements = enc.block(p.Statements)
	wp.Variables = enc.vars

	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&wp); err != nil {
		return nil, fmt.Errorf("encoding program: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a program produced by Marshal. The result is verified
// before it is returned.
func Unmarshal(data []byte) (*Program, error) {
	var wp wireProgram
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&wp); err != nil {
		return nil, fmt.Errorf("decoding program: %w", err)
	}

	dec := &decoder{vars: make([]*Variable, len(wp.Variables))}
	for i, wv := range wp.Variables {
		dec.vars[i] = &Variable{ID: VarID(i), Name: wv.Name, Kind: wv.Kind, Size: wv.Size, Declared: true}
	}

	p := &Program{
		Version:       wp.Version,
		IntWidth:      wp.IntWidth,
		QubitRegister: wp.QubitRegister,
		NumQubits:     wp.NumQubits,
	}
	for _, ws := range wp.Subroutines {
		body, err := dec.block(ws.Body)
		if err != nil {
			return nil, err
		}
		p.Subroutines = append(p.Subroutines, &Subroutine{Name: ws.Name, Body: body})
	}
	stmts, err := dec.block(wp.Statements)
	if err != nil {
		return nil, err
	}
	p.Statements = stmts
	if err := Verify(p); err != nil {
		return nil, fmt.Errorf("decoding program: %w", err)
	}
	return p, nil
}

type encoder struct {
	index map[*Variable]int
	vars  []wireVariable
}

func (e *encoder) ref(v *Variable) int {
	if v == nil {
		return -1
	}
	if i, ok := e.index[v]; ok {
		return i
	}
	i := len(e.vars)
	e.index[v] = i
	e.vars = append(e.vars, wireVariable{Name: v.Name, Kind: v.Kind, Size: v.Size})
	return i
}

func (e *encoder) operand(op Operand) *wireOperand {
	switch o := op.(type) {
	case *Variable:
		return &wireOperand{Var: e.ref(o)}
	case Literal:
		return &wireOperand{Var: -1, Literal: true, Kind: o.Kind, Text: o.Text}
	}
	return nil
}

func (e *encoder) block(stmts []Statement) []wireStatement {
	out := make([]wireStatement, 0, len(stmts))
	for _, stmt := range stmts {
		ws := wireStatement{Var: -1, Index: -1}
		switch s := stmt.(type) {
		case *Declare:
			ws.Op, ws.Var = opDeclare, e.ref(s.Var)
		case *DeclareWithInit:
			ws.Op, ws.Var, ws.Operand = opDeclareWithInit, e.ref(s.Var), e.operand(s.Init)
		case *Assign:
			ws.Op, ws.Var, ws.Operand = opAssign, e.ref(s.Target), e.operand(s.Value)
		case *Measure:
			ws.Op, ws.Var, ws.Index = opMeasure, e.ref(s.Target), s.Index
			ws.Qubits = []Qubit{s.Qubit}
		case *Gate:
			ws.Op, ws.Name, ws.Qubits = opGate, s.Name, s.Qubits
		case *ForLoop:
			ws.Op, ws.Var = opFor, e.ref(s.Var)
			ws.Range = [3]int{s.Start, s.Stop, s.Step}
			ws.Body = e.block(s.Body)
		case *WhileLoop:
			ws.Op, ws.Operand, ws.Body = opWhile, e.operand(s.Cond), e.block(s.Body)
		case *If:
			ws.Op, ws.Operand = opIf, e.operand(s.Cond)
			ws.Body, ws.Else = e.block(s.Then), e.block(s.Else)
		case *Break:
			ws.Op = opBreak
		case *Continue:
			ws.Op = opContinue
		case *Call:
			ws.Op, ws.Name = opCall, s.Name
		}
		out = append(out, ws)
	}
	return out
}

type decoder struct {
	vars []*Variable
}

func (d *decoder) ref(i int) (*Variable, error) {
	if i < 0 || i >= len(d.vars) {
		return nil, fmt.Errorf("decoding program: variable index %d out of range", i)
	}
	return d.vars[i], nil
}

func (d *decoder) operand(wo *wireOperand) (Operand, error) {
	if wo == nil {
		return nil, fmt.Errorf("decoding program: missing operand")
	}
	if wo.Literal {
		return Literal{Kind: wo.Kind, Text: wo.Text}, nil
	}
	return d.ref(wo.Var)
}

func (d *decoder) block(ws []wireStatement) ([]Statement, error) {
	out := make([]Statement, 0, len(ws))
	for _, w := range ws {
		stmt, err := d.statement(w)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

func (d *decoder) statement(w wireStatement) (Statement, error) {
	switch w.Op {
	case opDeclare:
		v, err := d.ref(w.Var)
		if err != nil {
			return nil, err
		}
		return &Declare{Var: v}, nil
	case opDeclareWithInit, opAssign:
		v, err := d.ref(w.Var)
		if err != nil {
			return nil, err
		}
		op, err := d.operand(w.Operand)
		if err != nil {
			return nil, err
		}
		if w.Op == opAssign {
			return &Assign{Target: v, Value: op}, nil
		}
		return &DeclareWithInit{Var: v, Init: op}, nil
	case opMeasure:
		v, err := d.ref(w.Var)
		if err != nil {
			return nil, err
		}
		if len(w.Qubits) != 1 {
			return nil, fmt.Errorf("decoding program: measure expects one qubit, got %d", len(w.Qubits))
		}
		return &Measure{Qubit: w.Qubits[0], Target: v, Index: w.Index}, nil
	case opGate:
		return &Gate{Name: w.Name, Qubits: w.Qubits}, nil
	case opFor:
		v, err := d.ref(w.Var)
		if err != nil {
			return nil, err
		}
		body, err := d.block(w.Body)
		if err != nil {
			return nil, err
		}
		return &ForLoop{Var: v, Start: w.Range[0], Stop: w.Range[1], Step: w.Range[2], Body: body}, nil
	case opWhile:
		cond, err := d.operand(w.Operand)
		if err != nil {
			return nil, err
		}
		body, err := d.block(w.Body)
		if err != nil {
			return nil, err
		}
		return &WhileLoop{Cond: cond, Body: body}, nil
	case opIf:
		cond, err := d.operand(w.Operand)
		if err != nil {
			return nil, err
		}
		then, err := d.block(w.Body)
		if err != nil {
			return nil, err
		}
		els, err := d.block(w.Else)
		if err != nil {
			return nil, err
		}
		return &If{Cond: cond, Then: then, Else: els}, nil
	case opBreak:
		return &Break{}, nil
	case opContinue:
		return &Continue{}, nil
	case opCall:
		return &Call{Name: w.Name}, nil
	default:
		return nil, fmt.Errorf("decoding program: unknown op %q", w.Op)
	}
}
