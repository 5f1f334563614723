package extract

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	apperrors "github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/errors"
)

// PDF extracts page text with github.com/ledongthuc/pdf.
type PDF struct{}

func (PDF) Open(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusUnavailable, "opening %s: %v", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperrors.Newf(apperrors.ErrCorpusUnavailable, "stat %s: %v", path, err)
	}
	reader, err := newPDFReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, apperrors.Newf(apperrors.ErrExtraction, "parsing %s: %v", path, err)
	}
	return &pdfDocument{file: f, path: path, reader: reader}, nil
}

// newPDFReader converts parser panics on malformed input into errors.
func newPDFReader(f *os.File, size int64) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed pdf: %v", p)
		}
	}()
	return pdf.NewReader(f, size)
}

type pdfDocument struct {
	file   *os.File
	path   string
	reader *pdf.Reader
}

func (d *pdfDocument) NumPages() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) PageText(page int) (text string, err error) {
	if page < 1 || page > d.reader.NumPage() {
		return "", apperrors.Newf(apperrors.ErrExtraction, "%s: page %d out of range", d.path, page)
	}
	defer func() {
		if p := recover(); p != nil {
			err = apperrors.Newf(apperrors.ErrExtraction, "%s page %d: %v", d.path, page, p)
		}
	}()
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrExtraction, "%s page %d: %v", d.path, page, err)
	}
	return text, nil
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}
