package structure

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ChapterSpec is one declared chapter from the editorially maintained
// chapter list.
type ChapterSpec struct {
	ChapterNumber int      `json:"chapter_number"`
	Title         string   `json:"title"`
	StartPage     int      `json:"start_page"`
	EndPage       int      `json:"end_page"`
	Subheadings   []string `json:"subheadings"`
}

// BookSpec is the declared chapter list for one book.
type BookSpec struct {
	BookTitle string        `json:"book_title"`
	Chapters  []ChapterSpec `json:"chapters"`
}

// rawChapter accepts both key variants found in the wild:
// chapter_number/title and chapter/heading.
type rawChapter struct {
	ChapterNumber *int     `json:"chapter_number"`
	Chapter       *int     `json:"chapter"`
	Title         string   `json:"title"`
	Heading       string   `json:"heading"`
	StartPage     *int     `json:"start_page"`
	EndPage       *int     `json:"end_page"`
	Subheadings   []string `json:"subheadings"`
}

type rawBook struct {
	BookTitle string       `json:"book_title"`
	Title     string       `json:"title"`
	Chapters  []rawChapter `json:"chapters"`
	Headings  []rawChapter `json:"headings"`
}

// LoadSpecs reads a chapter specification file keyed by book id and
// normalises both accepted shapes ({book_title, chapters} and
// {title, headings}) into BookSpec records.
func LoadSpecs(path string) (map[string]BookSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chapter spec: %w", err)
	}

	var byBook map[string]rawBook
	if err := json.Unmarshal(data, &byBook); err != nil {
		return nil, fmt.Errorf("parsing chapter spec %s: %w", path, err)
	}

	specs := make(map[string]BookSpec, len(byBook))
	for bookID, raw := range byBook {
		spec, ok := normalize(raw)
		if !ok {
			continue
		}
		specs[bookID] = spec
	}
	return specs, nil
}

// normalize converts a raw entry into a BookSpec. Entries with a
// "headings" list but no page numbers get page ranges estimated from
// subheading counts, in document order.
func normalize(raw rawBook) (BookSpec, bool) {
	title := raw.BookTitle
	if title == "" {
		title = raw.Title
	}

	if len(raw.Chapters) > 0 {
		spec := BookSpec{BookTitle: title}
		for i, ch := range raw.Chapters {
			spec.Chapters = append(spec.Chapters, normalizeChapter(ch, i))
		}
		return spec, true
	}

	if len(raw.Headings) > 0 {
		spec := BookSpec{BookTitle: title}
		currentPage := 1
		for i, h := range raw.Headings {
			estPages := len(h.Subheadings) * 2
			if estPages < 10 {
				estPages = 10
			}
			chTitle := h.Heading
			if chTitle == "" {
				chTitle = h.Title
			}
			if chTitle == "" {
				chTitle = fmt.Sprintf("Section %d", i+1)
			}
			spec.Chapters = append(spec.Chapters, ChapterSpec{
				ChapterNumber: i + 1,
				Title:         chTitle,
				StartPage:     currentPage,
				EndPage:       currentPage + estPages - 1,
				Subheadings:   h.Subheadings,
			})
			currentPage += estPages
		}
		return spec, true
	}

	return BookSpec{}, false
}

func normalizeChapter(ch rawChapter, ordinal int) ChapterSpec {
	out := ChapterSpec{
		Title:       ch.Title,
		StartPage:   1,
		EndPage:     10,
		Subheadings: ch.Subheadings,
	}
	switch {
	case ch.ChapterNumber != nil:
		out.ChapterNumber = *ch.ChapterNumber
	case ch.Chapter != nil:
		out.ChapterNumber = *ch.Chapter
	default:
		out.ChapterNumber = ordinal + 1
	}
	if out.Title == "" {
		out.Title = ch.Heading
	}
	if out.Title == "" {
		out.Title = fmt.Sprintf("Chapter %d", out.ChapterNumber)
	}
	if ch.StartPage != nil {
		out.StartPage = *ch.StartPage
	}
	if ch.EndPage != nil {
		out.EndPage = *ch.EndPage
	}
	return out
}

// FindSpec looks up the spec for a book, tolerating the loose id matching
// the editorial files use (either string may contain the other).
func FindSpec(specs map[string]BookSpec, bookID string) (BookSpec, bool) {
	if spec, ok := specs[bookID]; ok {
		return spec, true
	}
	for key, spec := range specs {
		if strings.Contains(key, bookID) || strings.Contains(bookID, key) {
			return spec, true
		}
	}
	return BookSpec{}, false
}

// LoadSpecsXLSX reads chapter specifications from a spreadsheet with the
// columns: book_id, book_title, chapter_number, title, start_page,
// end_page, subheadings (semicolon-separated). The first row is a header.
func LoadSpecsXLSX(path string) (map[string]BookSpec, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening spec spreadsheet: %w", err)
	}
	defer f.Close()

	specs := make(map[string]BookSpec)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for i, row := range rows {
			if i == 0 || len(row) < 4 {
				continue
			}
			bookID := strings.TrimSpace(row[0])
			if bookID == "" {
				continue
			}

			spec := specs[bookID]
			if spec.BookTitle == "" {
				spec.BookTitle = strings.TrimSpace(row[1])
			}

			ch := ChapterSpec{
				ChapterNumber: len(spec.Chapters) + 1,
				Title:         strings.TrimSpace(row[3]),
				StartPage:     1,
				EndPage:       10,
			}
			if n, err := strconv.Atoi(strings.TrimSpace(row[2])); err == nil {
				ch.ChapterNumber = n
			}
			if len(row) > 4 {
				if n, err := strconv.Atoi(strings.TrimSpace(row[4])); err == nil {
					ch.StartPage = n
				}
			}
			if len(row) > 5 {
				if n, err := strconv.Atoi(strings.TrimSpace(row[5])); err == nil {
					ch.EndPage = n
				}
			}
			if len(row) > 6 && strings.TrimSpace(row[6]) != "" {
				for _, sub := range strings.Split(row[6], ";") {
					if s := strings.TrimSpace(sub); s != "" {
						ch.Subheadings = append(ch.Subheadings, s)
					}
				}
			}

			spec.Chapters = append(spec.Chapters, ch)
			specs[bookID] = spec
		}
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("no chapter rows found in %s", path)
	}
	return specs, nil
}
