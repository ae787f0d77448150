package grammar

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"qconv/internal/errors"
	"qconv/internal/events"
	"qconv/internal/source"
)

var parser = participle.MustBuild[Script](
	participle.Lexer(ScriptLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(3),
)

// ParseString parses a host script into its syntax tree
func ParseString(filename, src string) (*Script, error) {
	script, err := parser.ParseString(filename, src)
	if err != nil {
		var pe participle.Error
		if stderrors.As(err, &pe) {
			return nil, errors.Syntax(pe.Message(), position(pe.Position()))
		}
		return nil, errors.Syntax(err.Error(), source.Position{Filename: filename})
	}
	return script, nil
}

// Parse parses a host script and lowers it to structural events
func Parse(filename, src string) ([]events.Event, error) {
	script, err := ParseString(filename, src)
	if err != nil {
		return nil, err
	}
	return Lower(script)
}

// ParseFile reads and parses the script at path. The source text is
// returned for diagnostics.
func ParseFile(path string) ([]events.Event, string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	evs, err := Parse(path, string(src))
	return evs, string(src), err
}

func position(p lexer.Position) source.Position {
	return source.Position{Filename: p.Filename, Offset: p.Offset, Line: p.Line, Column: p.Column}
}
