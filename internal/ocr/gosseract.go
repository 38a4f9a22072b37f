package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"
)

// Gosseract recognizes text through the tesseract library bindings. Each call
// uses a fresh client, which keeps recognitions independent of one another.
type Gosseract struct {
	languages     []string
	dpi           int
	clientFactory func() *gosseract.Client
}

// NewGosseract creates a Gosseract engine. A zero dpi leaves the tesseract
// default in place.
func NewGosseract(languages []string, dpi int) *Gosseract {
	return &Gosseract{
		languages:     languages,
		dpi:           dpi,
		clientFactory: gosseract.NewClient,
	}
}

// Recognize runs OCR over a page image and returns the recognized text.
func (g *Gosseract) Recognize(ctx context.Context, image []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	c := g.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", eris.Wrap(err, "ocr: set image")
	}
	if len(g.languages) > 0 {
		if err := c.SetLanguage(g.languages...); err != nil {
			return "", eris.Wrap(err, "ocr: set languages")
		}
	}
	if g.dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(g.dpi)); err != nil {
			return "", eris.Wrap(err, "ocr: set dpi")
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", eris.Wrap(err, "ocr: recognize text")
	}
	return strings.TrimSpace(text), nil
}
