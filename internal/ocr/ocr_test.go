package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomhaven/order-cli/internal/config"
)

func TestNewEngine_Gosseract(t *testing.T) {
	eng, err := NewEngine(config.OCRConfig{Provider: "gosseract", Languages: []string{"eng"}, DPI: 200})
	require.NoError(t, err)
	assert.IsType(t, &Gosseract{}, eng)
}

func TestNewEngine_GosseractDefault(t *testing.T) {
	eng, err := NewEngine(config.OCRConfig{Provider: ""})
	require.NoError(t, err)
	assert.IsType(t, &Gosseract{}, eng)
}

func TestNewEngine_TesseractCLI(t *testing.T) {
	eng, err := NewEngine(config.OCRConfig{Provider: "tesseract", TesseractPath: "/usr/bin/tesseract"})
	require.NoError(t, err)
	cli, ok := eng.(*TesseractCLI)
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/tesseract", cli.binPath)
}

func TestNewEngine_Mistral(t *testing.T) {
	eng, err := NewEngine(config.OCRConfig{Provider: "mistral", MistralAPIKey: "key-123"})
	require.NoError(t, err)
	m, ok := eng.(*MistralOCR)
	require.True(t, ok)
	assert.Equal(t, defaultMistralModel, m.model)
}

func TestNewEngine_MistralWithoutKey(t *testing.T) {
	_, err := NewEngine(config.OCRConfig{Provider: "mistral"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORDERCLI_OCR_MISTRAL_API_KEY")
}

func TestNewEngine_UnknownProvider(t *testing.T) {
	_, err := NewEngine(config.OCRConfig{Provider: "textract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "textract"`)
}

func TestTesseractCLI_BinPath(t *testing.T) {
	cli := NewTesseractCLI("", nil)
	assert.Equal(t, "tesseract", cli.binPath)

	cli = NewTesseractCLI("/custom/tesseract", nil)
	assert.Equal(t, "/custom/tesseract", cli.binPath)
}

func TestTesseractCLI_Recognize_BinaryNotFound(t *testing.T) {
	cli := NewTesseractCLI("/nonexistent/tesseract", nil)
	_, err := cli.Recognize(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract failed")
}

func TestTesseractCLI_Recognize_Success(t *testing.T) {
	// Fake tesseract that prints the image file it was handed.
	tmpDir := t.TempDir()
	fakeBin := filepath.Join(tmpDir, "tesseract")
	script := "#!/bin/sh\ncat \"$1\"\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0755))

	cli := NewTesseractCLI(fakeBin, nil)
	text, err := cli.Recognize(context.Background(), []byte("SHIP TO: JOHN SMITH"))
	require.NoError(t, err)
	assert.Equal(t, "SHIP TO: JOHN SMITH", text)
}

func TestTesseractCLI_Recognize_LanguageArgs(t *testing.T) {
	tmpDir := t.TempDir()
	fakeBin := filepath.Join(tmpDir, "tesseract")
	script := "#!/bin/sh\necho \"$@\"\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0755))

	cli := NewTesseractCLI(fakeBin, []string{"eng", "spa"})
	out, err := cli.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Contains(t, out, "stdout -l eng+spa")
}

func TestNewRasterizer_Defaults(t *testing.T) {
	r := NewRasterizer("", 0)
	assert.Equal(t, "pdftoppm", r.binPath)
	assert.Equal(t, 200, r.dpi)
}

func TestRasterizer_RasterizePage_BinaryNotFound(t *testing.T) {
	r := NewRasterizer("/nonexistent/pdftoppm", 200)
	_, err := r.RasterizePage(context.Background(), "/tmp/doc.pdf", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftoppm failed")
}

func TestRasterizer_RasterizePage_Success(t *testing.T) {
	// Fake pdftoppm that records its args and writes a padded page image to
	// the output prefix, the way the real tool names files.
	tmpDir := t.TempDir()
	fakeBin := filepath.Join(tmpDir, "pdftoppm")
	script := "#!/bin/sh\n" +
		"echo \"$@\" > \"$(dirname \"$0\")/args.txt\"\n" +
		"for last; do :; done\n" +
		"printf 'fake-png-bytes' > \"${last}-04.png\"\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0755))

	r := NewRasterizer(fakeBin, 300)
	img, err := r.RasterizePage(context.Background(), "/tmp/doc.pdf", 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-png-bytes"), img)

	args, err := os.ReadFile(filepath.Join(tmpDir, "args.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(args), "-f 4 -l 4")
	assert.Contains(t, string(args), "-r 300")
	assert.Contains(t, string(args), "-png /tmp/doc.pdf")
}

func TestRasterizer_RasterizePage_NoOutput(t *testing.T) {
	tmpDir := t.TempDir()
	fakeBin := filepath.Join(tmpDir, "pdftoppm")
	script := "#!/bin/sh\nexit 0\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0755))

	r := NewRasterizer(fakeBin, 200)
	_, err := r.RasterizePage(context.Background(), "/tmp/doc.pdf", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced no image")
}

type stubEngine struct {
	gotImage []byte
	text     string
	err      error
}

func (s *stubEngine) Recognize(_ context.Context, image []byte) (string, error) {
	s.gotImage = image
	return s.text, s.err
}

func TestPageReader_ReadPage(t *testing.T) {
	tmpDir := t.TempDir()
	fakeBin := filepath.Join(tmpDir, "pdftoppm")
	script := "#!/bin/sh\n" +
		"for last; do :; done\n" +
		"printf 'rendered-page' > \"${last}-1.png\"\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0755))

	engine := &stubEngine{text: "Ship To: MARY JONES"}
	reader := NewPageReader(NewRasterizer(fakeBin, 200), engine)

	text, err := reader.ReadPage(context.Background(), "/tmp/doc.pdf", 0)
	require.NoError(t, err)
	assert.Equal(t, "Ship To: MARY JONES", text)
	assert.Equal(t, []byte("rendered-page"), engine.gotImage)
}

func TestPageReader_ReadPage_RasterError(t *testing.T) {
	engine := &stubEngine{text: "unused"}
	reader := NewPageReader(NewRasterizer("/nonexistent/pdftoppm", 200), engine)

	_, err := reader.ReadPage(context.Background(), "/tmp/doc.pdf", 0)
	require.Error(t, err)
	assert.Nil(t, engine.gotImage)
}

func TestMistralOCR_Recognize(t *testing.T) {
	var gotReq mistralOCRRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := mistralOCRResponse{Pages: []mistralOCRPage{
			{Index: 0, Markdown: "SHIP TO:"},
			{Index: 1, Markdown: "JOHN SMITH"},
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	m := NewMistralOCR("key-123", "")
	m.endpoint = srv.URL

	text, err := m.Recognize(context.Background(), []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "SHIP TO:\n\nJOHN SMITH", text)
	assert.Equal(t, "Bearer key-123", gotAuth)
	assert.Equal(t, defaultMistralModel, gotReq.Model)
	assert.Equal(t, "image_url", gotReq.Document.Type)
	assert.True(t, strings.HasPrefix(gotReq.Document.ImageURL, "data:image/png;base64,"))
}

func TestMistralOCR_Recognize_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewMistralOCR("bad-key", "pixtral-12b")
	m.endpoint = srv.URL

	_, err := m.Recognize(context.Background(), []byte("png-bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral API returned 401")
}

func TestPdfToText_ExtractPages(t *testing.T) {
	// Fake pdftotext that emits two form-feed separated pages.
	tmpDir := t.TempDir()
	fakeBin := filepath.Join(tmpDir, "pdftotext")
	script := "#!/bin/sh\nprintf 'Ship To: page one\\fShip To: page two\\f'\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0755))

	p := NewPdfToText(fakeBin)
	pages, err := p.ExtractPages(context.Background(), "/tmp/doc.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Ship To: page one", pages[0])
	assert.Equal(t, "Ship To: page two", pages[1])
}

func TestPdfToText_ExtractPages_BinaryNotFound(t *testing.T) {
	p := NewPdfToText("/nonexistent/pdftotext")
	_, err := p.ExtractPages(context.Background(), "/tmp/doc.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}
