package lsp

import (
	"github.com/alecthomas/participle/v2/lexer"

	"qconv/grammar"
)

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into the semanticTokenTypes array
// TokenModifiers is a bitmask based on semanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int // index into semanticTokenTypes
	TokenModifiers int // bitmask
}

// builtin calls that construct or read values rather than apply gates
var builtinCalls = map[string]bool{
	"IntVar":  true,
	"BoolVar": true,
	"BitVar":  true,
	"measure": true,
	"qubit":   true,
	"qubits":  true,
}

func collectSemanticTokens(script *grammar.Script) []SemanticToken {
	if script == nil {
		return nil
	}
	return walkStatements(script.Statements)
}

func walkStatements(stmts []*grammar.Statement) []SemanticToken {
	var tokens []SemanticToken
	for _, s := range stmts {
		tokens = append(tokens, walkStatement(s)...)
	}
	return tokens
}

func walkStatement(s *grammar.Statement) []SemanticToken {
	var tokens []SemanticToken

	switch {
	case s.Let != nil:
		tokens = append(tokens, makeToken(s.Pos, "let", "keyword", 0)...)
		tokens = append(tokens, nameToken(s.Let.Tokens, s.Let.Name, "variable")...)
		tokens = append(tokens, makeToken(s.Let.Type.Pos, s.Let.Type.Name, "type", 0)...)
	case s.For != nil:
		tokens = append(tokens, makeToken(s.Pos, "for", "keyword", 0)...)
		tokens = append(tokens, nameToken(s.For.Tokens, s.For.Var, "variable")...)
		for _, arg := range s.For.Args {
			tokens = append(tokens, makeToken(arg.Pos, arg.String(), "number", 0)...)
		}
		tokens = append(tokens, walkStatements(s.For.Body.Statements)...)
	case s.While != nil:
		tokens = append(tokens, makeToken(s.Pos, "while", "keyword", 0)...)
		tokens = append(tokens, walkExpression(s.While.Cond)...)
		tokens = append(tokens, walkStatements(s.While.Body.Statements)...)
	case s.If != nil:
		tokens = append(tokens, walkIf(s.If)...)
	case s.Def != nil:
		tokens = append(tokens, makeToken(s.Pos, "def", "keyword", 0)...)
		tokens = append(tokens, nameToken(s.Def.Tokens, s.Def.Name, "function")...)
		tokens = append(tokens, walkStatements(s.Def.Body.Statements)...)
	case s.Break:
		tokens = append(tokens, makeToken(s.Pos, "break", "keyword", 0)...)
	case s.Continue:
		tokens = append(tokens, makeToken(s.Pos, "continue", "keyword", 0)...)
	case s.Return != nil:
		tokens = append(tokens, makeToken(s.Pos, "return", "keyword", 0)...)
		if s.Return.Value != nil {
			tokens = append(tokens, walkExpression(s.Return.Value)...)
		}
	case s.Assign != nil:
		tokens = append(tokens, makeToken(s.Pos, s.Assign.Target, "variable", 1)...)
		tokens = append(tokens, walkExpression(s.Assign.Value)...)
	case s.Call != nil:
		tokens = append(tokens, walkCall(s.Call.Call)...)
	}

	return tokens
}

func walkIf(i *grammar.IfStmt) []SemanticToken {
	var tokens []SemanticToken
	tokens = append(tokens, makeToken(i.Pos, "if", "keyword", 0)...)
	tokens = append(tokens, walkExpression(i.Cond)...)
	tokens = append(tokens, walkStatements(i.Then.Statements)...)
	if i.Else == nil {
		return tokens
	}
	if i.Else.If != nil {
		return append(tokens, walkIf(i.Else.If)...)
	}
	return append(tokens, walkStatements(i.Else.Body.Statements)...)
}

func walkExpression(e *grammar.Expr) []SemanticToken {
	if e == nil {
		return nil
	}

	var tokens []SemanticToken
	switch {
	case e.Call != nil:
		tokens = append(tokens, walkCall(e.Call)...)
	case e.Number != nil:
		tokens = append(tokens, makeToken(e.Pos, *e.Number, "number", 0)...)
	case e.Ident != nil:
		tokens = append(tokens, makeToken(e.Pos, *e.Ident, "variable", 0)...)
	case e.Tuple != nil:
		for _, item := range e.Tuple.Items {
			tokens = append(tokens, walkExpression(item)...)
		}
	case e.List != nil:
		for _, item := range e.List.Items {
			tokens = append(tokens, walkExpression(item)...)
		}
	}
	return tokens
}

func walkCall(c *grammar.CallExpr) []SemanticToken {
	kind := "function"
	if builtinCalls[c.Name] {
		kind = "type"
		if c.Name == "measure" {
			kind = "operator"
		}
	}
	tokens := makeToken(c.Pos, c.Name, kind, 0)
	for _, arg := range c.Args {
		tokens = append(tokens, walkExpression(arg)...)
	}
	return tokens
}

// nameToken finds the declared name among the tokens matched by a node; the
// keyword comes first
func nameToken(toks []lexer.Token, name, tokenType string) []SemanticToken {
	for i := 1; i < len(toks); i++ {
		if toks[i].Value == name {
			return makeToken(toks[i].Pos, name, tokenType, 1)
		}
	}
	return nil
}

// makeToken creates a semantic token for a given position and text
func makeToken(pos lexer.Position, value, tokenType string, declModifier int) []SemanticToken {
	if value == "" || pos.Line <= 0 || pos.Column <= 0 {
		return nil
	}

	return []SemanticToken{{
		Line:           uint32(pos.Line - 1),   // LSP uses 0-based line numbers
		StartChar:      uint32(pos.Column - 1), // LSP uses 0-based column numbers
		Length:         uint32(len(value)),
		TokenType:      indexOf(tokenType, SemanticTokenTypes),
		TokenModifiers: declModifier << indexOf("declaration", SemanticTokenModifiers),
	}}
}

// indexOf returns the index of a string in a slice, or 0 if not found
func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return 0 // Default to first token type if not found
}
