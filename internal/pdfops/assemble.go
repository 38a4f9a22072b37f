package pdfops

import (
	"bytes"

	"github.com/rotisserie/eris"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/loomhaven/order-cli/internal/match"
)

// Interleave assembles the merged document by copying pages out of the
// shipping and labels PDFs in the exact order the merge produced. Page
// numbers in seq are 0-based per source document.
func Interleave(shipping, labels []byte, seq []match.PageRef) ([]byte, error) {
	shipReader, err := model.NewPdfReader(bytes.NewReader(shipping))
	if err != nil {
		return nil, eris.Wrap(err, "pdfops: open shipping pdf")
	}
	labelReader, err := model.NewPdfReader(bytes.NewReader(labels))
	if err != nil {
		return nil, eris.Wrap(err, "pdfops: open labels pdf")
	}

	writer := model.NewPdfWriter()
	for _, ref := range seq {
		var page *model.PdfPage
		switch ref.Source {
		case match.SourceShipping:
			page, err = shipReader.GetPage(ref.Page + 1)
		case match.SourceLabels:
			page, err = labelReader.GetPage(ref.Page + 1)
		default:
			return nil, eris.Errorf("pdfops: unknown page source %q", ref.Source)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "pdfops: read %s page %d", ref.Source, ref.Page+1)
		}
		if err := writer.AddPage(page); err != nil {
			return nil, eris.Wrapf(err, "pdfops: add %s page %d", ref.Source, ref.Page+1)
		}
	}

	var buf bytes.Buffer
	if err := writer.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "pdfops: write merged pdf")
	}
	return buf.Bytes(), nil
}
