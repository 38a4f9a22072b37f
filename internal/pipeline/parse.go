package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/loomhaven/order-cli/internal/model"
)

// ParseResult holds the order lines extracted from a packing slip.
type ParseResult struct {
	Lines  []model.OrderLine
	Stored []model.StoredOrderLine
	Pages  int
}

// ParseSlip reads a packing-slip PDF and extracts its order lines. When
// save is set, the lines replace any previously stored lines for the same
// source file.
func (p *Pipeline) ParseSlip(ctx context.Context, slipPath string, save bool) (*ParseResult, error) {
	log := zap.L().With(zap.String("slip", slipPath))

	content, err := os.ReadFile(slipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read slip %s", slipPath)
	}

	pages, err := p.extract(content)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: extract slip pages")
	}

	lines, err := p.parser.Parse(pages)
	if err != nil {
		return nil, err
	}
	log.Info("parsed packing slip",
		zap.Int("pages", len(pages)),
		zap.Int("order_lines", len(lines)))

	result := &ParseResult{Lines: lines, Pages: len(pages)}
	if save {
		if p.store == nil {
			return nil, eris.New("pipeline: no store configured, cannot save order lines")
		}
		stored, err := p.store.ReplaceOrderLines(ctx, filepath.Base(slipPath), lines)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: save order lines")
		}
		result.Stored = stored
		log.Info("saved order lines", zap.Int("count", len(stored)))
	}
	return result, nil
}
