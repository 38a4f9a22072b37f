package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/loomhaven/order-cli/internal/match"
	"github.com/loomhaven/order-cli/internal/model"
)

// MergeRequest names the two input documents of a merge.
type MergeRequest struct {
	SlipPath     string
	ShippingPath string
}

// MergeResult is the merged PDF plus everything needed for the QC report.
type MergeResult struct {
	Merged  []byte
	Run     *model.MergeRun
	Results []model.MatchResult
	Lines   []model.OrderLine
}

// Merge parses the packing slip, renders one manufacturing label per order
// line, matches each shipping page to a buyer, and interleaves the two
// documents so every shipping label is followed by that buyer's
// manufacturing labels. The run is persisted when a store is configured;
// a persistence failure degrades to a warning, the merged PDF is still
// returned.
func (p *Pipeline) Merge(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	log := zap.L().With(
		zap.String("slip", req.SlipPath),
		zap.String("shipping", req.ShippingPath))

	slipContent, err := os.ReadFile(req.SlipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read slip %s", req.SlipPath)
	}
	shippingContent, err := os.ReadFile(req.ShippingPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read shipping file %s", req.ShippingPath)
	}

	// The two documents are independent until matching, so extract and
	// render in parallel.
	var (
		shippingTexts []string
		lines         []model.OrderLine
		labelPDF      []byte
	)
	var g errgroup.Group
	g.Go(func() error {
		texts, err := p.extract(shippingContent)
		if err != nil {
			return eris.Wrap(err, "pipeline: extract shipping pages")
		}
		shippingTexts = texts
		return nil
	})
	g.Go(func() error {
		pages, err := p.extract(slipContent)
		if err != nil {
			return eris.Wrap(err, "pipeline: extract slip pages")
		}
		parsed, err := p.parser.Parse(pages)
		if err != nil {
			return err
		}
		rendered, err := p.render(parsed)
		if err != nil {
			return eris.Wrap(err, "pipeline: render labels")
		}
		lines = parsed
		labelPDF = rendered
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info("merge inputs ready",
		zap.Int("shipping_pages", len(shippingTexts)),
		zap.Int("order_lines", len(lines)))

	buyers := make([]string, len(lines))
	for i, line := range lines {
		buyers[i] = line.BuyerName
	}
	idx := match.BuildSupplyIndex(buyers, len(lines))

	scanner := match.NewScanner(
		p.cfg.Match.FuzzyCutoff,
		p.cfg.Match.OCRTextThreshold,
		p.ocrFunc(req.ShippingPath))
	pageMatches := make([]*match.PageMatch, len(shippingTexts))
	for i, text := range shippingTexts {
		if m, ok := scanner.ScanPage(ctx, i, text, idx); ok {
			pageMatches[i] = &m
		}
	}

	outcome := match.Merge(idx, pageMatches)
	merged, err := p.interleave(shippingContent, labelPDF, outcome.Sequence)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: interleave documents")
	}

	run := &model.MergeRun{
		SlipFile:      filepath.Base(req.SlipPath),
		ShippingFile:  filepath.Base(req.ShippingPath),
		ShippingPages: len(shippingTexts),
		LabelPages:    len(lines),
		Matched:       outcome.Matched,
		Missing:       outcome.Missing,
		Entries:       outcome.Entries,
		Warnings:      outcome.Warnings,
	}
	if p.store != nil {
		saved, err := p.store.CreateMergeRun(ctx, *run)
		if err != nil {
			log.Warn("merge: failed to persist run", zap.Error(err))
		} else {
			run = saved
		}
	}

	log.Info("merge complete",
		zap.Int("matched", outcome.Matched),
		zap.Int("missing", outcome.Missing),
		zap.Int("output_pages", len(outcome.Sequence)))

	return &MergeResult{
		Merged:  merged,
		Run:     run,
		Results: outcome.Results,
		Lines:   lines,
	}, nil
}

// ocrFunc adapts the configured page reader into the scanner's OCR
// fallback. Returns nil when OCR is not configured, which disables the
// fallback entirely.
func (p *Pipeline) ocrFunc(shippingPath string) match.OCRFunc {
	if p.pageOCR == nil {
		return nil
	}
	timeout := time.Duration(p.cfg.OCR.TimeoutSecs) * time.Second
	return func(ctx context.Context, page int) (string, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return p.pageOCR.ReadPage(ctx, shippingPath, page)
	}
}
