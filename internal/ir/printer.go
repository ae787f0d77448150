package ir

import (
	"fmt"
	"strings"
)

// Printer renders a Program as OpenQASM-style text
type Printer struct {
	indent   int
	intWidth int
	register string
	lines    []string
}

// NewPrinter creates a new IR printer
func NewPrinter() *Printer {
	return &Printer{indent: 0, intWidth: DefaultIntWidth, register: DefaultQubitRegister}
}

// Defaults used when a Program leaves the corresponding field empty
const (
	DefaultVersion       = "3.0"
	DefaultIntWidth      = 32
	DefaultQubitRegister = "__qubits__"
)

// Print returns the textual form of a program. Lines are joined with "\n"
// and there is no trailing newline.
func Print(program *Program) string {
	p := NewPrinter()
	p.printProgram(program)
	return strings.Join(p.lines, "\n")
}

// Helper methods

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.lines = append(p.lines, strings.Repeat("    ", p.indent)+fmt.Sprintf(format, args...))
}

func (p *Printer) printProgram(program *Program) {
	version := program.Version
	if version == "" {
		version = DefaultVersion
	}
	if program.IntWidth > 0 {
		p.intWidth = program.IntWidth
	}
	if program.QubitRegister != "" {
		p.register = program.QubitRegister
	}

	p.writeLine("OPENQASM %s;", version)

	if program.NumQubits > 0 {
		p.writeLine("qubit[%d] %s;", program.NumQubits, p.register)
	}

	for _, sub := range program.Subroutines {
		p.writeLine("def %s() {", sub.Name)
		p.indent++
		p.printBlock(sub.Body)
		p.indent--
		p.writeLine("}")
	}

	p.printBlock(program.Statements)
}

func (p *Printer) printBlock(stmts []Statement) {
	for _, stmt := range stmts {
		p.printStatement(stmt)
	}
}

func (p *Printer) printStatement(stmt Statement) {
	switch s := stmt.(type) {
	case *Declare:
		p.writeLine("%s %s;", s.Var.TypeName(p.intWidth), s.Var.Name)
	case *DeclareWithInit:
		p.writeLine("%s %s = %s;", s.Var.TypeName(p.intWidth), s.Var.Name, s.Init)
	case *Assign:
		p.writeLine("%s = %s;", s.Target.Name, s.Value)
	case *Measure:
		p.writeLine("measure %s -> %s;", p.qubitString(s.Qubit), p.targetString(s.Target, s.Index))
	case *Gate:
		operands := make([]string, len(s.Qubits))
		for i, q := range s.Qubits {
			operands[i] = p.qubitString(q)
		}
		p.writeLine("%s %s;", s.Name, strings.Join(operands, ", "))
	case *ForLoop:
		p.writeLine("for %s %s in %s {", s.Var.TypeName(p.intWidth), s.Var.Name, rangeString(s.Start, s.Stop, s.Step))
		p.indent++
		p.printBlock(s.Body)
		p.indent--
		p.writeLine("}")
	case *WhileLoop:
		p.writeLine("while (%s) {", s.Cond)
		p.indent++
		p.printBlock(s.Body)
		p.indent--
		p.writeLine("}")
	case *If:
		p.writeLine("if (%s) {", s.Cond)
		p.indent++
		p.printBlock(s.Then)
		p.indent--
		if len(s.Else) > 0 {
			p.writeLine("} else {")
			p.indent++
			p.printBlock(s.Else)
			p.indent--
		}
		p.writeLine("}")
	case *Break:
		p.writeLine("break;")
	case *Continue:
		p.writeLine("continue;")
	case *Call:
		p.writeLine("%s();", s.Name)
	default:
		p.writeLine("// unknown statement %T", stmt)
	}
}

func (p *Printer) qubitString(q Qubit) string {
	if q.IsDynamic() {
		return fmt.Sprintf("%s[%s]", p.register, q.Expr)
	}
	return fmt.Sprintf("%s[%d]", p.register, q.Index)
}

func (p *Printer) targetString(v *Variable, index int) string {
	if index >= 0 {
		return fmt.Sprintf("%s[%d]", v.Name, index)
	}
	return v.Name
}

// rangeString renders a half-open host range as an inclusive QASM range
func rangeString(start, stop, step int) string {
	last := stop - 1
	if step < 0 {
		last = stop + 1
	}
	if step == 1 {
		return fmt.Sprintf("[%d:%d]", start, last)
	}
	return fmt.Sprintf("[%d:%d:%d]", start, step, last)
}
