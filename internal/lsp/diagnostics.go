package lsp

import (
	stderrors "errors"
	"strings"

	"fortio.org/safecast"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"qconv/grammar"
	"qconv/internal/config"
	"qconv/internal/convert"
	"qconv/internal/errors"
	"qconv/internal/program"
)

const diagnosticSource = "qconv"

// Check parses and builds one document. It returns the syntax tree, when
// parsing succeeded, and the diagnostics of the first failure.
func Check(cfg config.Config, path, content string) (*grammar.Script, []protocol.Diagnostic) {
	script, err := grammar.ParseString(path, content)
	if err != nil {
		return nil, ConvertError(err)
	}
	evs, err := grammar.Lower(script)
	if err != nil {
		return script, ConvertError(err)
	}
	if _, err := convert.Build(program.NewScope(cfg), evs); err != nil {
		return script, ConvertError(err)
	}
	return script, []protocol.Diagnostic{}
}

// ConvertError transforms a build failure into LSP diagnostics for IDE
// display. Notes and help text are appended to the message.
func ConvertError(err error) []protocol.Diagnostic {
	var be *errors.Error
	if !stderrors.As(err, &be) {
		return []protocol.Diagnostic{{
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString(diagnosticSource),
			Message:  err.Error(),
		}}
	}

	line := toUint32(be.Position.Line - 1) // Convert to 0-based indexing
	start := toUint32(be.Position.Column - 1)
	length := be.Length
	if length <= 0 {
		length = 1
	}

	message := be.Message
	if len(be.Notes) > 0 {
		message += "\nnote: " + strings.Join(be.Notes, "\nnote: ")
	}
	if be.HelpText != "" {
		message += "\nhelp: " + be.HelpText
	}

	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: start},
			End:   protocol.Position{Line: line, Character: start + toUint32(length)},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Code:     &protocol.IntegerOrString{Value: be.Kind.Code()},
		Source:   ptrString(diagnosticSource),
		Message:  message,
	}}
}

func toUint32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0
	}
	return v
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
