package lsp

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"maps"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"qconv/grammar"
	"qconv/internal/config"
)

var log = commonlog.GetLogger("qconv.lsp")

// Define the set of supported semantic token types (as required by the LSP spec)
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"typeParameter",
	"function",
	"variable",
	"parameter",
	"property",
	"keyword",
	"number",
	"operator",
	"modifier",
}

// Define the set of supported semantic token modifiers (for extra tagging like declaration, readonly, etc.)
var SemanticTokenModifiers = []string{
	"declaration",
	"definition",
	"readonly",
	"static",
	"deprecated",
	"abstract",
}

var keywords = []string{"let", "for", "in", "range", "while", "if", "else", "def", "break", "continue", "return"}

// Handler implements the LSP server handlers for qconv host programs
type Handler struct {
	configPath string

	mu      sync.RWMutex
	content map[string]string
	scripts map[string]*grammar.Script
}

// NewHandler creates a handler. configPath, when set, overrides the
// qconv.toml lookup next to each document.
func NewHandler(configPath string) *Handler {
	return &Handler{
		configPath: configPath,
		content:    make(map[string]string),
		scripts:    make(map[string]*grammar.Script),
	}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: ptrBool(false),
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("qconv LSP initialized")
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Info("qconv LSP shutdown")
	return nil
}

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Debugf("opened file: %s", params.TextDocument.URI)
	return h.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidClose handles file close notifications from the editor
func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Debugf("closed file: %s", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	delete(h.scripts, path)

	return nil
}

// TextDocumentDidChange handles file change notifications from the editor.
// The server asks for full sync, so the last change carries the whole text.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Debugf("changed file: %s", params.TextDocument.URI)

	for i := len(params.ContentChanges) - 1; i >= 0; i-- {
		switch change := params.ContentChanges[i].(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			return h.update(ctx, params.TextDocument.URI, change.Text)
		case *protocol.TextDocumentContentChangeEventWhole:
			return h.update(ctx, params.TextDocument.URI, change.Text)
		}
	}
	return nil
}

// TextDocumentCompletion offers keywords and the host functions
func (h *Handler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	keywordKind := protocol.CompletionItemKindKeyword
	functionKind := protocol.CompletionItemKindFunction

	items := make([]protocol.CompletionItem, 0, len(keywords)+len(builtinCalls))
	for _, kw := range keywords {
		items = append(items, protocol.CompletionItem{Label: kw, Kind: &keywordKind})
	}
	for _, name := range slices.Sorted(maps.Keys(builtinCalls)) {
		items = append(items, protocol.CompletionItem{Label: name, Kind: &functionKind})
	}

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	log.Debugf("semantic tokens requested for %s", params.TextDocument.URI)

	script, err := h.getOrUpdateScript(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	tokens := collectSemanticTokens(script)

	data := make([]uint32, 0, len(tokens)*5)
	var prevLine, prevStart uint32

	// delta-line, delta-start encoding
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{
		Data: data,
	}, nil
}

// getOrUpdateScript returns the syntax tree of a document. The editor's
// text is used while the document is open, the file on disk otherwise.
func (h *Handler) getOrUpdateScript(ctx *glsp.Context, rawURI protocol.DocumentUri) (*grammar.Script, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	script, ok := h.scripts[path]
	content, open := h.content[path]
	h.mu.RUnlock()
	if ok {
		return script, nil
	}

	if !open {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
		content = string(data)
	}
	if err := h.update(ctx, rawURI, content); err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if script, ok = h.scripts[path]; !ok {
		return nil, fmt.Errorf("%s does not parse", path)
	}
	return script, nil
}

// update rebuilds one document and publishes its diagnostics. An empty
// list clears the editor's markers.
func (h *Handler) update(ctx *glsp.Context, rawURI protocol.DocumentUri, content string) error {
	path, err := uriToPath(rawURI)
	if err != nil {
		return err
	}

	var diagnostics []protocol.Diagnostic
	cfg, err := config.Resolve(h.configPath, filepath.Dir(path))
	if err != nil {
		diagnostics = ConvertError(fmt.Errorf("%s: %w", config.FileName, err))
	}

	var script *grammar.Script
	if diagnostics == nil {
		script, diagnostics = Check(cfg, path, content)
	}

	h.mu.Lock()
	h.content[path] = content
	if script != nil {
		h.scripts[path] = script
	} else {
		delete(h.scripts, path)
	}
	h.mu.Unlock()

	sendDiagnosticNotification(ctx, rawURI, diagnostics)
	return nil
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) → C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	log.Debugf("publishing %d diagnostics for %s", len(diagnostics), uri)

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
