//go:build !ocr

package extract

import (
	"context"
	"errors"
)

// ErrOCRNotEnabled is returned when an image-based PDF is encountered but
// OCR support was not compiled in. Rebuild with -tags ocr (requires
// Tesseract and poppler-utils installed).
var ErrOCRNotEnabled = errors.New("extract: OCR support not enabled; rebuild with -tags ocr")

// ocrClient is the stub used without the "ocr" build tag.
type ocrClient struct{}

func newOCRClient() ocrClient { return ocrClient{} }

func (ocrClient) available() bool { return false }

func (ocrClient) close() error { return nil }

func (ocrClient) recognizePage(context.Context, string, int, string) (string, error) {
	return "", ErrOCRNotEnabled
}
