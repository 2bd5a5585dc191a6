// Package extract turns a source PDF into an ordered sequence of per-page
// text records, falling back to OCR when a page carries no embedded text.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is a single extracted page. Text is replaced in place by later
// cleaning stages; PageNo is never changed after extraction.
type Page struct {
	PageNo        int    `json:"page_no"`
	Text          string `json:"text"`
	Source        string `json:"source"`
	Category      string `json:"category"`
	ChapterNumber int    `json:"chapter_number,omitempty"`
	ChapterTitle  string `json:"chapter_title,omitempty"`
}

// PageSet is the page artifact for one book.
type PageSet struct {
	BookID         string `json:"book_id"`
	Category       string `json:"category"`
	TotalPages     int    `json:"total_pages"`
	ExtractedPages int    `json:"extracted_pages"`
	EmptyPages     int    `json:"empty_pages"`
	OCRPages       int    `json:"ocr_pages"`
	IsImagePDF     bool   `json:"is_image_pdf"`
	HasChapters    bool   `json:"has_chapters"`
	Pages          []Page `json:"pages"`
}

// ChapterHint is the declared chapter a page falls inside, attached to
// extracted pages when a chapter specification is available.
type ChapterHint struct {
	Number int
	Title  string
}

// Options configures a single extraction run.
type Options struct {
	// Category is the corpus category ("chapter" or "non_chapter").
	Category string
	// Hints maps a page number to its declared chapter, built by the
	// caller from the chapter specification.
	Hints map[int]ChapterHint
	// Language is the OCR language, defaulting to "eng".
	Language string
}

// Extractor extracts page text from PDFs with optional OCR fallback.
type Extractor struct {
	ocr ocrClient
}

// New returns an Extractor. OCR support depends on the "ocr" build tag;
// without it, image-only PDFs fail with ErrOCRNotEnabled.
func New() *Extractor {
	return &Extractor{ocr: newOCRClient()}
}

// Close releases OCR resources.
func (e *Extractor) Close() error {
	return e.ocr.close()
}

var spaceRuns = regexp.MustCompile(`[ \t]+`)

// cleanText normalises whitespace inside each line while preserving line
// boundaries, which the downstream line-based heuristics depend on.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// PDF extracts every page of the document at path. Pages with no text
// after both embedded extraction and OCR are counted and skipped.
func (e *Extractor) PDF(ctx context.Context, path string, opts Options) (*PageSet, error) {
	bookID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	ps := &PageSet{
		BookID:      bookID,
		Category:    opts.Category,
		TotalPages:  totalPages,
		HasChapters: len(opts.Hints) > 0,
	}

	// Sample the first pages: a book with no embedded text anywhere up
	// front is treated as image-based and routed through OCR.
	ps.IsImagePDF = totalPages > 0 &&
		embeddedText(reader, 1) == "" &&
		(totalPages < 2 || embeddedText(reader, 2) == "")

	if ps.IsImagePDF && !e.ocr.available() {
		return nil, fmt.Errorf("%s: image-based PDF: %w", bookID, ErrOCRNotEnabled)
	}

	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := embeddedText(reader, i)
		if text == "" && ps.IsImagePDF {
			recognised, err := e.ocr.recognizePage(ctx, path, i, lang)
			if err != nil {
				slog.Warn("extract: OCR failed for page", "book", bookID, "page", i, "error", err)
			} else if recognised != "" {
				text = cleanText(recognised)
				ps.OCRPages++
			}
		}

		if text == "" {
			ps.EmptyPages++
			continue
		}

		page := Page{
			PageNo:   i,
			Text:     text,
			Source:   bookID,
			Category: opts.Category,
		}
		if hint, ok := opts.Hints[i]; ok {
			page.ChapterNumber = hint.Number
			page.ChapterTitle = hint.Title
		}
		ps.Pages = append(ps.Pages, page)
	}

	ps.ExtractedPages = len(ps.Pages)
	return ps, nil
}

// embeddedText returns the cleaned embedded text of one page, or "" when
// the page has none (or fails to decode).
func embeddedText(reader *pdf.Reader, pageNo int) string {
	page := reader.Page(pageNo)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return cleanText(text)
}

// BuildHints expands chapter page ranges into a per-page lookup.
func BuildHints(chapters []ChapterRange) map[int]ChapterHint {
	hints := make(map[int]ChapterHint)
	for _, ch := range chapters {
		end := ch.EndPage
		if end < ch.StartPage {
			end = ch.StartPage
		}
		for p := ch.StartPage; p <= end; p++ {
			hints[p] = ChapterHint{Number: ch.Number, Title: ch.Title}
		}
	}
	return hints
}

// ChapterRange is the minimal declared-chapter shape BuildHints needs.
type ChapterRange struct {
	Number    int
	Title     string
	StartPage int
	EndPage   int
}
