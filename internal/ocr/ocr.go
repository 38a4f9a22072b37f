package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/loomhaven/order-cli/internal/config"
)

// Engine recognizes text in a rasterized page image.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// NewEngine creates an Engine based on config.
func NewEngine(cfg config.OCRConfig) (Engine, error) {
	switch cfg.Provider {
	case "gosseract", "":
		return NewGosseract(cfg.Languages, cfg.DPI), nil
	case "tesseract":
		return NewTesseractCLI(cfg.TesseractPath, cfg.Languages), nil
	case "mistral":
		if cfg.MistralAPIKey == "" {
			return nil, eris.New("ocr: mistral provider requires an API key (ORDERCLI_OCR_MISTRAL_API_KEY)")
		}
		return NewMistralOCR(cfg.MistralAPIKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
