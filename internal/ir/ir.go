// Package ir holds the linear circuit IR produced by a conversion context:
// typed variables, declaration/assignment/measurement statements, nested
// control blocks, and the text and binary forms of a finished Program.
package ir

// DeclaredVar returns the variable a statement declares, or nil
func DeclaredVar(stmt Statement) *Variable {
	switch s := stmt.(type) {
	case *Declare:
		return s.Var
	case *DeclareWithInit:
		return s.Var
	case *ForLoop:
		return s.Var
	}
	return nil
}

// AllStatements returns every statement of the program in program order,
// subroutine bodies first
func (p *Program) AllStatements() []Statement {
	var out []Statement
	collect := func(s Statement) bool {
		out = append(out, s)
		return true
	}
	for _, sub := range p.Subroutines {
		Walk(sub.Body, collect)
	}
	Walk(p.Statements, collect)
	return out
}
