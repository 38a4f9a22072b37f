package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// TesseractCLI recognizes text by shelling out to the tesseract binary. It
// avoids the cgo dependency of the library bindings at the cost of one
// process spawn per page.
type TesseractCLI struct {
	binPath   string
	languages []string
}

// NewTesseractCLI creates a TesseractCLI engine. If binPath is empty,
// "tesseract" is used.
func NewTesseractCLI(binPath string, languages []string) *TesseractCLI {
	if binPath == "" {
		binPath = "tesseract"
	}
	return &TesseractCLI{binPath: binPath, languages: languages}
}

// Recognize writes the image to a temp file, runs tesseract over it, and
// returns stdout.
func (t *TesseractCLI) Recognize(ctx context.Context, image []byte) (string, error) {
	dir, err := os.MkdirTemp("", "ordercli-ocr-")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp dir")
	}
	defer os.RemoveAll(dir)

	imgPath := filepath.Join(dir, "page.png")
	if err := os.WriteFile(imgPath, image, 0o644); err != nil {
		return "", eris.Wrap(err, "ocr: write temp image")
	}

	args := []string{imgPath, "stdout"}
	if len(t.languages) > 0 {
		args = append(args, "-l", strings.Join(t.languages, "+"))
	}
	cmd := exec.CommandContext(ctx, t.binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: tesseract failed: %s", stderr.String())
	}

	return strings.TrimSpace(stdout.String()), nil
}
