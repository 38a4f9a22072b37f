package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
)

// Rasterizer renders single PDF pages to PNG images using the pdftoppm CLI
// tool from poppler.
type Rasterizer struct {
	binPath string
	dpi     int
}

// NewRasterizer creates a Rasterizer. If binPath is empty, "pdftoppm" is
// used; if dpi is not positive, 200 is used.
func NewRasterizer(binPath string, dpi int) *Rasterizer {
	if binPath == "" {
		binPath = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 200
	}
	return &Rasterizer{binPath: binPath, dpi: dpi}
}

// RasterizePage renders the given zero-based page of the PDF at pdfPath to a
// PNG and returns its bytes.
func (r *Rasterizer) RasterizePage(ctx context.Context, pdfPath string, page int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "ordercli-raster-")
	if err != nil {
		return nil, eris.Wrap(err, "ocr: create temp dir")
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	pageNum := fmt.Sprintf("%d", page+1)
	cmd := exec.CommandContext(ctx, r.binPath,
		"-f", pageNum, "-l", pageNum,
		"-r", fmt.Sprintf("%d", r.dpi),
		"-png", pdfPath, prefix)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "ocr: pdftoppm failed for %s page %d: %s", pdfPath, page+1, stderr.String())
	}

	// pdftoppm pads the page number in the output name to the width of the
	// document's last page, so glob instead of reconstructing the name.
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, eris.Wrap(err, "ocr: glob rendered pages")
	}
	if len(matches) == 0 {
		return nil, eris.Errorf("ocr: pdftoppm produced no image for %s page %d", pdfPath, page+1)
	}
	sort.Strings(matches)

	img, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, eris.Wrapf(err, "ocr: read rendered page %s", matches[0])
	}
	return img, nil
}
