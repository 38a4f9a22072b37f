package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/loomhaven/order-cli/internal/model"
)

// RenderLabels parses a packing slip and renders one manufacturing label
// page per order line. Returns the PDF bytes and the parsed lines.
func (p *Pipeline) RenderLabels(ctx context.Context, slipPath string) ([]byte, []model.OrderLine, error) {
	result, err := p.ParseSlip(ctx, slipPath, false)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := p.render(result.Lines)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: render labels")
	}
	zap.L().Info("rendered manufacturing labels",
		zap.String("slip", slipPath),
		zap.Int("labels", len(result.Lines)))
	return pdf, result.Lines, nil
}
