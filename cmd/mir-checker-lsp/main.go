package main

import (
	"log"
	"os"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"mir-checker/internal/lsp"
	"mir-checker/internal/mclog"
)

const lsName = "mir-checker"

var (
	version = "0.0.1"
	handler protocol.Handler
)

func main() {
	mclog.Configure(1, nil)

	h := lsp.NewHandler()

	handler = protocol.Handler{
		Initialize:                     h.Initialize,
		Initialized:                    h.Initialized,
		Shutdown:                       h.Shutdown,
		TextDocumentDidOpen:            h.TextDocumentDidOpen,
		TextDocumentDidClose:           h.TextDocumentDidClose,
		TextDocumentDidChange:          h.TextDocumentDidChange,
		TextDocumentCompletion:         h.TextDocumentCompletion,
		TextDocumentSemanticTokensFull: h.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Printf("Starting mir-checker LSP server (%s)...\n", version)

	if err := s.RunStdio(); err != nil {
		log.Println("Error starting mir-checker LSP server:", err)
		os.Exit(1)
	}
}
