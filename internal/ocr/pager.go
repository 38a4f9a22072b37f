package ocr

import (
	"context"

	"go.uber.org/zap"
)

// PageReader recovers text from scanned PDF pages by rasterizing them and
// running an OCR engine over the result.
type PageReader struct {
	raster *Rasterizer
	engine Engine
}

// NewPageReader creates a PageReader from a rasterizer and an engine.
func NewPageReader(raster *Rasterizer, engine Engine) *PageReader {
	return &PageReader{raster: raster, engine: engine}
}

// ReadPage renders the given zero-based page of the PDF at pdfPath and
// returns the recognized text.
func (p *PageReader) ReadPage(ctx context.Context, pdfPath string, page int) (string, error) {
	img, err := p.raster.RasterizePage(ctx, pdfPath, page)
	if err != nil {
		return "", err
	}

	text, err := p.engine.Recognize(ctx, img)
	if err != nil {
		return "", err
	}

	zap.L().Debug("ocr page read",
		zap.String("pdf", pdfPath),
		zap.Int("page", page+1),
		zap.Int("chars", len(text)))

	return text, nil
}
