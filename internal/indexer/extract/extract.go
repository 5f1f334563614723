// Package extract opens corpus documents and returns the raw text of each
// page. Extractors are selected by file extension through a Registry.
package extract

import (
	"path/filepath"
	"strings"
)

// Document is an opened corpus file. Pages are numbered from 1.
type Document interface {
	NumPages() int
	PageText(page int) (string, error)
	Close() error
}

// Extractor opens documents of one format. Open fails with
// ErrCorpusUnavailable when the file cannot be read and with ErrExtraction
// when its content cannot be parsed.
type Extractor interface {
	Open(path string) (Document, error)
}

// Registry maps lower-case file extensions (with the leading dot) to
// extractors.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a Registry with the PDF and plain-text extractors
// registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(".pdf", PDF{})
	r.Register(".txt", Text{})
	return r
}

func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// For returns the extractor for path's extension.
func (r *Registry) For(path string) (Extractor, bool) {
	e, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return e, ok
}
