//go:build ocr

package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/otiai10/gosseract/v2"
)

// ErrOCRNotEnabled is never returned by this implementation; it exists so
// both build variants expose the same sentinel.
var ErrOCRNotEnabled = errors.New("extract: OCR support not enabled; rebuild with -tags ocr")

// ocrClient wraps Tesseract via gosseract. Pages are rasterised with
// pdftoppm, which must be on PATH (poppler-utils).
type ocrClient struct {
	client *gosseract.Client
}

func newOCRClient() ocrClient {
	return ocrClient{client: gosseract.NewClient()}
}

func (c ocrClient) available() bool { return true }

func (c ocrClient) close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// recognizePage rasterises one PDF page at 200 DPI and runs OCR on it.
func (c ocrClient) recognizePage(ctx context.Context, path string, pageNo int, lang string) (string, error) {
	dir, err := os.MkdirTemp("", "medibook-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-f", strconv.Itoa(pageNo), "-l", strconv.Itoa(pageNo),
		"-r", "200", "-png", path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("rendering page %d: %w: %s", pageNo, err, out)
	}

	matches, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no rendered image for page %d", pageNo)
	}

	if err := c.client.SetLanguage(lang); err != nil {
		return "", err
	}
	if err := c.client.SetImage(matches[0]); err != nil {
		return "", fmt.Errorf("setting OCR image: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed for page %d: %w", pageNo, err)
	}
	return text, nil
}
