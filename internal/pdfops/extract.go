package pdfops

import (
	"bytes"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ExtractPageTexts returns the machine text of every page, index 0 for page
// 1. Pages that fail extraction yield an empty string so image-only and
// damaged pages flow through to later OCR or pass-through handling; only a
// document that cannot be opened at all is an error.
func ExtractPageTexts(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, eris.Wrap(err, "pdfops: open pdf")
	}

	texts := make([]string, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			zap.L().Debug("page text extraction failed",
				zap.Int("page", i),
				zap.Error(err))
			continue
		}
		texts[i-1] = text
	}
	return texts, nil
}

// pageText renders a page row by row so downstream line-oriented scanning
// sees the label's visual structure. Falls back to the plain text stream
// when row extraction fails.
func pageText(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return p.GetPlainText(nil)
	}

	var b strings.Builder
	for _, row := range rows {
		for j, word := range row.Content {
			if j > 0 {
				b.WriteString(" ")
			}
			b.WriteString(word.S)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// CountPages returns the page count of a PDF document.
func CountPages(content []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, eris.Wrap(err, "pdfops: open pdf")
	}
	return r.NumPage(), nil
}
