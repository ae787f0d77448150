// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"qconv/internal/lsp"
)

const lsName = "qconv"

var (
	version = "0.1.0"
	handler protocol.Handler
)

func main() {
	configPath := flag.String("config", "", "path to qconv.toml (default: nearest one above each document)")
	verbosity := flag.Int("v", 1, "log verbosity")
	flag.Parse()

	commonlog.Configure(*verbosity, nil)
	log := commonlog.GetLogger("qconv.lsp")

	h := lsp.NewHandler(*configPath)

	handler = protocol.Handler{
		Initialize:                     h.Initialize,
		Initialized:                    h.Initialized,
		Shutdown:                       h.Shutdown,
		SetTrace:                       h.SetTrace,
		TextDocumentDidOpen:            h.TextDocumentDidOpen,
		TextDocumentDidClose:           h.TextDocumentDidClose,
		TextDocumentDidChange:          h.TextDocumentDidChange,
		TextDocumentCompletion:         h.TextDocumentCompletion,
		TextDocumentSemanticTokensFull: h.TextDocumentSemanticTokensFull,
	}

	// debug=false keeps glsp's own request tracing off
	s := server.NewServer(&handler, lsName, false)

	log.Infof("starting qconv LSP server %s", version)

	if err := s.RunStdio(); err != nil {
		log.Errorf("error running qconv LSP server: %s", err)
		os.Exit(1)
	}
}
