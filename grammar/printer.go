package grammar

import (
	"fmt"
	"strings"
)

func indent(level int) string {
	return strings.Repeat("    ", level)
}

// String renders the script in canonical form. Comments are not kept.
func (s *Script) String() string {
	var b strings.Builder
	for _, st := range s.Statements {
		b.WriteString(st.StringWithIndent(0))
	}
	return b.String()
}

func (s *Statement) StringWithIndent(level int) string {
	switch {
	case s.Let != nil:
		return indent(level) + s.Let.String() + "\n"
	case s.For != nil:
		return indent(level) + s.For.StringWithIndent(level)
	case s.While != nil:
		return indent(level) + s.While.StringWithIndent(level)
	case s.If != nil:
		return indent(level) + s.If.StringWithIndent(level)
	case s.Def != nil:
		return indent(level) + s.Def.StringWithIndent(level)
	case s.Break:
		return indent(level) + "break;\n"
	case s.Continue:
		return indent(level) + "continue;\n"
	case s.Return != nil:
		return indent(level) + s.Return.String() + "\n"
	case s.Assign != nil:
		return indent(level) + s.Assign.String() + "\n"
	case s.Call != nil:
		return indent(level) + s.Call.Call.String() + ";\n"
	}
	return ""
}

func (l *LetStmt) String() string {
	return fmt.Sprintf("let %s: %s;", l.Name, l.Type.String())
}

func (t *TypeName) String() string {
	if t.Size != nil {
		return fmt.Sprintf("%s[%s]", t.Name, *t.Size)
	}
	return t.Name
}

func (f *ForStmt) StringWithIndent(level int) string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("for %s in range(%s) %s", f.Var, strings.Join(args, ", "), f.Body.StringWithIndent(level))
}

func (n *SignedInt) String() string {
	if n.Neg {
		return "-" + n.Value
	}
	return n.Value
}

func (w *WhileStmt) StringWithIndent(level int) string {
	return fmt.Sprintf("while %s %s", w.Cond.String(), w.Body.StringWithIndent(level))
}

func (i *IfStmt) StringWithIndent(level int) string {
	s := fmt.Sprintf("if %s %s", i.Cond.String(), i.Then.StringWithIndent(level))
	if i.Else == nil {
		return s
	}
	s = strings.TrimSuffix(s, "\n") + " else "
	if i.Else.If != nil {
		return s + i.Else.If.StringWithIndent(level)
	}
	return s + i.Else.Body.StringWithIndent(level)
}

func (d *DefStmt) StringWithIndent(level int) string {
	return fmt.Sprintf("def %s() %s", d.Name, d.Body.StringWithIndent(level))
}

func (b *Block) StringWithIndent(level int) string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for _, s := range b.Statements {
		sb.WriteString(s.StringWithIndent(level + 1))
	}
	sb.WriteString(indent(level) + "}\n")
	return sb.String()
}

func (r *ReturnStmt) String() string {
	if r.Value != nil {
		return fmt.Sprintf("return %s;", r.Value.String())
	}
	return "return;"
}

func (a *AssignStmt) String() string {
	return fmt.Sprintf("%s = %s;", a.Target, a.Value.String())
}

func (e *Expr) String() string {
	switch {
	case e.Call != nil:
		return e.Call.String()
	case e.Tuple != nil:
		return "(" + joinExprs(e.Tuple.Items) + ")"
	case e.List != nil:
		return "[" + joinExprs(e.List.Items) + "]"
	case e.Number != nil:
		return *e.Number
	case e.Ident != nil:
		return *e.Ident
	}
	return ""
}

func (c *CallExpr) String() string {
	return c.Name + "(" + joinExprs(c.Args) + ")"
}

func joinExprs(exprs []*Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
