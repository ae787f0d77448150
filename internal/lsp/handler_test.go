package lsp_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"qconv/internal/lsp"
)

const tokensSource = `a = IntVar(5);
let r: bit[2];
for i in range(3) {
    h(i);
}
`

// recorder captures published diagnostics
type recorder struct {
	published []*protocol.PublishDiagnosticsParams
}

func (r *recorder) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method != protocol.ServerTextDocumentPublishDiagnostics {
				return
			}
			if p, ok := params.(*protocol.PublishDiagnosticsParams); ok {
				r.published = append(r.published, p)
			}
		},
	}
}

func (r *recorder) last(t *testing.T) []protocol.Diagnostic {
	t.Helper()
	require.NotEmpty(t, r.published, "no diagnostics published")
	return r.published[len(r.published)-1].Diagnostics
}

func documentURI(t *testing.T, name string) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	return path, "file://" + filepath.ToSlash(path)
}

func open(t *testing.T, h *lsp.Handler, ctx *glsp.Context, uri, text string) {
	t.Helper()
	err := h.TextDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "qconv", Version: 1, Text: text},
	})
	require.NoError(t, err)
}

func TestTextDocumentSemanticTokensFull(t *testing.T) {
	handler := lsp.NewHandler("")

	path, uri := documentURI(t, "tokens.qc")
	require.NoError(t, os.WriteFile(path, []byte(tokensSource), 0o644))

	params := &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}

	tokens, err := handler.TextDocumentSemanticTokensFull(&glsp.Context{}, params)
	require.NoError(t, err, "TextDocumentSemanticTokensFull returned error")
	require.NotNil(t, tokens, "Returned tokens should not be nil")

	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err, "Failed to decode semantic tokens")
	require.Len(t, decoded, 11)

	assertToken(t, &decoded[0], 1, 1, 1, "variable", []string{"declaration"})
	assertToken(t, &decoded[1], 1, 5, 6, "type", nil)
	assertToken(t, &decoded[2], 1, 12, 1, "number", nil)
	assertToken(t, &decoded[3], 2, 1, 3, "keyword", nil)
	assertToken(t, &decoded[4], 2, 5, 1, "variable", []string{"declaration"})
	assertToken(t, &decoded[5], 2, 8, 3, "type", nil)
	assertToken(t, &decoded[6], 3, 1, 3, "keyword", nil)
	assertToken(t, &decoded[7], 3, 5, 1, "variable", []string{"declaration"})
	assertToken(t, &decoded[8], 3, 16, 1, "number", nil)
	assertToken(t, &decoded[9], 4, 5, 1, "function", nil)
	assertToken(t, &decoded[10], 4, 7, 1, "variable", nil)
}

func TestOpenPublishesBuildErrors(t *testing.T) {
	handler := lsp.NewHandler("")
	rec := &recorder{}
	_, uri := documentURI(t, "bad.qc")

	open(t, handler, rec.context(), uri, "a = IntVar(1);\na = BoolVar(true);\n")

	diagnostics := rec.last(t)
	require.Len(t, diagnostics, 1)
	d := diagnostics[0]
	assert.Equal(t, uint32(1), d.Range.Start.Line)
	assert.Equal(t, uint32(0), d.Range.Start.Character)
	require.NotNil(t, d.Code)
	assert.Equal(t, "E0103", d.Code.Value)
	require.NotNil(t, d.Severity)
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	require.NotNil(t, d.Source)
	assert.Equal(t, "qconv", *d.Source)
}

func TestChangeClearsDiagnostics(t *testing.T) {
	handler := lsp.NewHandler("")
	rec := &recorder{}
	ctx := rec.context()
	_, uri := documentURI(t, "edit.qc")

	open(t, handler, ctx, uri, "b = nope;\n")
	diagnostics := rec.last(t)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "E0104", diagnostics[0].Code.Value)

	err := handler.TextDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEventWhole{Text: "b = IntVar(2);\n"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, rec.last(t))
	assert.Len(t, rec.published, 2)
}

func TestSyntaxErrorDiagnostic(t *testing.T) {
	handler := lsp.NewHandler("")
	rec := &recorder{}
	_, uri := documentURI(t, "syntax.qc")

	open(t, handler, rec.context(), uri, "a = IntVar(5);\nb = ;\n")

	diagnostics := rec.last(t)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "E0200", diagnostics[0].Code.Value)
	assert.Equal(t, uint32(1), diagnostics[0].Range.Start.Line)

	tokens, err := handler.TextDocumentSemanticTokensFull(rec.context(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	// the open text is rechecked, not the missing file
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not parse")
	assert.Nil(t, tokens)
}

func TestTokensUseOpenText(t *testing.T) {
	handler := lsp.NewHandler("")
	rec := &recorder{}
	path, uri := documentURI(t, "edited.qc")
	require.NoError(t, os.WriteFile(path, []byte("a = IntVar(5);\n"), 0o644))

	open(t, handler, rec.context(), uri, "b = ;\n")

	_, err := handler.TextDocumentSemanticTokensFull(rec.context(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.Error(t, err, "the unsaved edit wins over the file on disk")
	assert.Contains(t, err.Error(), "does not parse")

	require.NoError(t, handler.TextDocumentDidClose(rec.context(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
	tokens, err := handler.TextDocumentSemanticTokensFull(rec.context(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Data)
}

func TestCompletionOffersHostFunctions(t *testing.T) {
	handler := lsp.NewHandler("")
	result, err := handler.TextDocumentCompletion(&glsp.Context{}, &protocol.CompletionParams{})
	require.NoError(t, err)

	list, ok := result.(*protocol.CompletionList)
	require.True(t, ok)
	labels := make([]string, len(list.Items))
	for i, item := range list.Items {
		labels[i] = item.Label
	}
	assert.Contains(t, labels, "measure")
	assert.Contains(t, labels, "BitVar")
	assert.Contains(t, labels, "while")
	assert.Len(t, labels, 17)
}

func TestBadConfigIsReported(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "qconv.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`hoisting = "sometimes"`), 0o644))

	handler := lsp.NewHandler(cfgPath)
	rec := &recorder{}
	open(t, handler, rec.context(), "file://"+filepath.ToSlash(filepath.Join(dir, "a.qc")), "a = IntVar(1);\n")

	diagnostics := rec.last(t)
	require.Len(t, diagnostics, 1)
	assert.Contains(t, diagnostics[0].Message, "hoisting")
}

type DecodedToken struct {
	Index     int
	Line      uint32
	Char      uint32
	Length    uint32
	Type      string
	Modifiers []string
}

func decodeSemanticTokens(raw []uint32) ([]DecodedToken, error) {
	if len(raw)%5 != 0 {
		return nil, fmt.Errorf("raw token data length %d is not a multiple of 5", len(raw))
	}

	var (
		decoded []DecodedToken
		line    uint32
		char    uint32
	)

	for i := 0; i < len(raw); i += 5 {
		deltaLine := raw[i]
		deltaStart := raw[i+1]
		length := raw[i+2]
		tokenTypeIdx := raw[i+3]
		tokenModMask := raw[i+4]

		if deltaLine == 0 {
			char += deltaStart
		} else {
			line += deltaLine
			char = deltaStart
		}

		var modifiers []string
		for j, name := range lsp.SemanticTokenModifiers {
			if tokenModMask&(1<<j) != 0 {
				modifiers = append(modifiers, name)
			}
		}

		decoded = append(decoded, DecodedToken{
			Index:     i / 5,
			Line:      line + 1, // LSP uses 0-based indexing
			Char:      char + 1, // LSP uses 0-based indexing
			Length:    length,
			Type:      lsp.SemanticTokenTypes[tokenTypeIdx],
			Modifiers: modifiers,
		})
	}

	return decoded, nil
}

func assertToken(t *testing.T, token *DecodedToken, expectedLine, expectedChar, expectedLength uint32, expectedType string, expectedModifiers []string) {
	require.Equal(t, expectedLine, token.Line, "line mismatch (expected line %d)", expectedLine)
	require.Equal(t, expectedChar, token.Char, "char mismatch (expected char %d)", expectedChar)
	require.Equal(t, expectedLength, token.Length, "length mismatch")
	require.Equal(t, expectedType, token.Type, "type mismatch")
	require.ElementsMatch(t, expectedModifiers, token.Modifiers, "modifiers mismatch")
}
