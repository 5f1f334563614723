package extract

import (
	"os"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/errors"
)

// PageBreak separates pages in plain-text documents, as in pdftotext output.
const PageBreak = "\f"

// Text reads UTF-8 text files whose pages are separated by form feeds. A
// single trailing form feed does not start a new page; an empty file has no
// pages.
type Text struct{}

func (Text) Open(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusUnavailable, "reading %s: %v", path, err)
	}
	if !utf8.Valid(data) {
		return nil, apperrors.Newf(apperrors.ErrExtraction, "%s: not valid UTF-8", path)
	}
	content := strings.TrimSuffix(string(data), PageBreak)
	var pages []string
	if content != "" {
		pages = strings.Split(content, PageBreak)
	}
	return &textDocument{path: path, pages: pages}, nil
}

type textDocument struct {
	path  string
	pages []string
}

func (d *textDocument) NumPages() int {
	return len(d.pages)
}

func (d *textDocument) PageText(page int) (string, error) {
	if page < 1 || page > len(d.pages) {
		return "", apperrors.Newf(apperrors.ErrExtraction, "%s: page %d out of range", d.path, page)
	}
	return d.pages[page-1], nil
}

func (d *textDocument) Close() error {
	return nil
}
