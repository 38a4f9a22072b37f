// Package pipeline orchestrates the slip workflows: parsing packing slips,
// rendering manufacturing labels, merging labels with shipping documents,
// and pushing orders to Airtable.
package pipeline

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/loomhaven/order-cli/internal/config"
	"github.com/loomhaven/order-cli/internal/label"
	"github.com/loomhaven/order-cli/internal/match"
	"github.com/loomhaven/order-cli/internal/model"
	"github.com/loomhaven/order-cli/internal/ocr"
	"github.com/loomhaven/order-cli/internal/pdfops"
	"github.com/loomhaven/order-cli/internal/slip"
	"github.com/loomhaven/order-cli/internal/store"
	"github.com/loomhaven/order-cli/pkg/airtable"
)

// PageOCR recognizes the text of one PDF page. Satisfied by ocr.PageReader.
type PageOCR interface {
	ReadPage(ctx context.Context, pdfPath string, page int) (string, error)
}

// Pipeline wires the stages together. Store, Airtable client, and OCR are
// optional; operations that need a missing dependency fail with a clear
// error instead of panicking.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	airtable airtable.Client
	pageOCR  PageOCR

	parser   *slip.Parser
	renderer *label.Renderer

	// Stage seams, overridable in tests. Defaults are the real
	// implementations.
	extract    func(content []byte) ([]string, error)
	render     func(lines []model.OrderLine) ([]byte, error)
	interleave func(shipping, labels []byte, seq []match.PageRef) ([]byte, error)
}

// New builds a pipeline from configuration. The color table sidecar is
// loaded if configured; otherwise the built-in table is used.
func New(cfg *config.Config, st store.Store, at airtable.Client, pageOCR PageOCR) (*Pipeline, error) {
	colors := slip.DefaultColorTable()
	if cfg.Slip.ColorTablePath != "" {
		loaded, err := slip.LoadColorTable(cfg.Slip.ColorTablePath)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: load color table")
		}
		colors = loaded
	}

	renderer := label.NewRenderer(cfg.Label.WidthInches, cfg.Label.HeightInches)

	p := &Pipeline{
		cfg:        cfg,
		store:      st,
		airtable:   at,
		pageOCR:    pageOCR,
		parser:     slip.NewParser(colors),
		renderer:   renderer,
		render:     renderer.Render,
		interleave: pdfops.Interleave,
	}
	p.extract = p.extractPageTexts
	return p, nil
}

// extractPageTexts extracts per-page text, falling back to the pdftotext
// binary when the pure-Go parser cannot read the document. Amazon
// occasionally ships PDFs with cross-reference quirks that only poppler
// tolerates.
func (p *Pipeline) extractPageTexts(content []byte) ([]string, error) {
	pages, err := pdfops.ExtractPageTexts(content)
	if err == nil {
		return pages, nil
	}

	fallback, fbErr := p.pdftotextPages(content)
	if fbErr != nil {
		zap.L().Debug("pdftotext fallback failed", zap.Error(fbErr))
		return nil, err
	}
	zap.L().Info("extracted page text with pdftotext", zap.Int("pages", len(fallback)))
	return fallback, nil
}

func (p *Pipeline) pdftotextPages(content []byte) ([]string, error) {
	tmp, err := os.CreateTemp("", "ordercli-*.pdf")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create temp pdf")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(content); err != nil {
		tmp.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "pipeline: write temp pdf")
	}
	if err := tmp.Close(); err != nil {
		return nil, eris.Wrap(err, "pipeline: close temp pdf")
	}

	return ocr.NewPdfToText(p.cfg.OCR.PdftotextPath).ExtractPages(context.Background(), tmp.Name())
}
