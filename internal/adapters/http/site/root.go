// Package site serves the embedded candidate guide.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants
var (
	ErrGenerate = errors.New("docs site generation failed")
	ErrServe    = errors.New("docs site serve failed")
)

// Register attaches the embedded candidate guide routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	// Serve the embedded guide under /docs/
	files := http.StripPrefix("/docs/", http.FileServer(FS()))
	mux.Handle("/docs/", files)
}

// DocsHandler handles candidate guide requests
type DocsHandler struct{}

// NewDocsHandler creates a new docs handler
func NewDocsHandler() *DocsHandler {
	return &DocsHandler{}
}

// HandleDocs serves a page of the embedded candidate guide
func (h *DocsHandler) HandleDocs(w http.ResponseWriter, r *http.Request) {
	files := http.StripPrefix("/docs/", http.FileServer(FS()))
	files.ServeHTTP(w, r)
}
