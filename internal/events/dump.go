package events

import (
	"fmt"
	"strings"

	"qconv/internal/qubits"
)

// Dump renders an event stream one event per line, nested bodies indented
// by two spaces. Each line starts with the event's position.
func Dump(evs []Event) string {
	var sb strings.Builder
	dump(&sb, evs, 0)
	return sb.String()
}

func dump(sb *strings.Builder, evs []Event, level int) {
	for _, ev := range evs {
		fmt.Fprintf(sb, "%s%s %s\n", strings.Repeat("  ", level), ev.Pos(), describe(ev))
		switch e := ev.(type) {
		case *Branch:
			dump(sb, e.Then, level+1)
			if len(e.Else) > 0 {
				fmt.Fprintf(sb, "%selse\n", strings.Repeat("  ", level))
				dump(sb, e.Else, level+1)
			}
		case *Subroutine:
			dump(sb, e.Body, level+1)
		default:
			for _, body := range Body(ev) {
				dump(sb, body, level+1)
			}
		}
	}
}

func describe(ev Event) string {
	switch e := ev.(type) {
	case *Assign:
		return fmt.Sprintf("assign %s = %s", e.Name, describeValue(e.Value))
	case *Declare:
		if e.Size > 0 {
			return fmt.Sprintf("declare %s %s[%d]", e.Name, e.Kind, e.Size)
		}
		return fmt.Sprintf("declare %s %s", e.Name, e.Kind)
	case *Measure:
		return "measure " + targetString(e.Target)
	case *Gate:
		targets := make([]string, len(e.Targets))
		for i, t := range e.Targets {
			targets[i] = targetString(t)
		}
		return fmt.Sprintf("gate %s(%s)", e.Name, strings.Join(targets, ", "))
	case *ForLoop:
		return fmt.Sprintf("for %s in range(%d, %d, %d)", e.Var, e.Start, e.Stop, e.Step)
	case *WhileLoop:
		return "while " + describeValue(e.Cond)
	case *Branch:
		return "if " + describeValue(e.Cond)
	case *EarlyExit:
		return e.Kind.String()
	case *Subroutine:
		return "def " + e.Name
	case *Call:
		return "call " + e.Name
	case *Unsupported:
		return "unsupported " + e.Construct
	}
	return fmt.Sprintf("%T", ev)
}

func describeValue(v Value) string {
	switch v := v.(type) {
	case Literal:
		return fmt.Sprintf("%s(%s)", v.Kind, v.Text)
	case Untyped:
		return "untyped " + v.Text
	case Ref:
		return "ref " + v.Name
	case MeasureCall:
		return "measure " + targetString(v.Target)
	case QubitValue:
		return "qubits " + targetString(v.Target)
	}
	return fmt.Sprintf("%T", v)
}

func targetString(id qubits.Identifier) string {
	if id == nil {
		return "<all referenced>"
	}
	return id.String()
}
