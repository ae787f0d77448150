package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Script is a host program: a flat list of statements, with subroutine
// definitions at any point
type Script struct {
	Pos        lexer.Position
	Statements []*Statement `@@*`
}

type Statement struct {
	Pos      lexer.Position
	Let      *LetStmt    `  @@`
	For      *ForStmt    `| @@`
	While    *WhileStmt  `| @@`
	If       *IfStmt     `| @@`
	Def      *DefStmt    `| @@`
	Break    bool        `| @"break" ";"`
	Continue bool        `| @"continue" ";"`
	Return   *ReturnStmt `| @@`
	Assign   *AssignStmt `| @@`
	Call     *CallStmt   `| @@`
}

// LetStmt declares a typed variable with no value: let r: bit[2];
type LetStmt struct {
	Pos    lexer.Position
	Tokens []lexer.Token
	Name   string    `"let" @Ident ":"`
	Type   *TypeName `@@ ";"`
}

type TypeName struct {
	Pos  lexer.Position
	Name string  `@Ident`
	Size *string `[ "[" @Integer "]" ]`
}

// ForStmt iterates over range(stop), range(start, stop) or
// range(start, stop, step)
type ForStmt struct {
	Pos    lexer.Position
	Tokens []lexer.Token
	Var    string       `"for" @Ident "in" "range" "("`
	Args   []*SignedInt `@@ { "," @@ } ")"`
	Body   *Block       `@@`
}

type SignedInt struct {
	Pos   lexer.Position
	Neg   bool   `[ @"-" ]`
	Value string `@Integer`
}

type WhileStmt struct {
	Pos  lexer.Position
	Cond *Expr  `"while" @@`
	Body *Block `@@`
}

type IfStmt struct {
	Pos  lexer.Position
	Cond *Expr       `"if" @@`
	Then *Block      `@@`
	Else *ElseClause `[ "else" @@ ]`
}

type ElseClause struct {
	Pos  lexer.Position
	If   *IfStmt `  @@`
	Body *Block  `| @@`
}

// DefStmt defines a subroutine with no parameters
type DefStmt struct {
	Pos    lexer.Position
	Tokens []lexer.Token
	Name   string `"def" @Ident "(" ")"`
	Body   *Block `@@`
}

type ReturnStmt struct {
	Pos   lexer.Position
	Value *Expr `"return" [ @@ ] ";"`
}

type AssignStmt struct {
	Pos    lexer.Position
	Target string `@Ident "="`
	Value  *Expr  `@@ ";"`
}

// CallStmt is measure(...), a gate application h(q) or a subroutine call
// f()
type CallStmt struct {
	Pos  lexer.Position
	Call *CallExpr `@@ ";"`
}

type Block struct {
	Pos        lexer.Position
	Statements []*Statement `"{" @@* "}"`
}

type Expr struct {
	Pos    lexer.Position
	Call   *CallExpr `  @@`
	Tuple  *Tuple    `| @@`
	List   *List     `| @@`
	Number *string   `| @( "-"? Integer )`
	Ident  *string   `| @Ident`
}

type CallExpr struct {
	Pos  lexer.Position
	Name string  `@Ident "("`
	Args []*Expr `[ @@ { "," @@ } ] ")"`
}

type Tuple struct {
	Pos   lexer.Position
	Items []*Expr `"(" @@ { "," @@ } ")"`
}

type List struct {
	Pos   lexer.Position
	Items []*Expr `"[" [ @@ { "," @@ } ] "]"`
}
