package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var ScriptLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{"Comment", `#[^\n]*|//[^\n]*`, nil},

		// Keywords and Identifiers
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		// Integer literals
		{"Integer", `0x[0-9a-fA-F]+|[0-9]+`, nil},

		// Operators
		{"Operator", `[-=]`, nil},

		// Punctuation
		{"Punctuation", `[{}[\]:,;()]`, nil},

		// Whitespace
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
