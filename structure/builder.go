package structure

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nqureshi/medibook/extract"
	"github.com/nqureshi/medibook/patterns"
)

// ErrNoContent means every page of the book was filtered out as noise.
var ErrNoContent = errors.New("structure: no content pages after noise filtering")

// Chapter is one structured unit of a book. Chapter-based books fill
// ChapterNumber; everything else fills SectionNumber.
type Chapter struct {
	ChapterNumber int            `json:"chapter_number,omitempty"`
	SectionNumber int            `json:"section_number,omitempty"`
	Title         string         `json:"title"`
	Subheadings   []string       `json:"subheadings,omitempty"`
	StartPage     int            `json:"start_page"`
	EndPage       int            `json:"end_page"`
	TotalPages    int            `json:"total_pages"`
	FullText      string         `json:"full_text"`
	Pages         []extract.Page `json:"pages,omitempty"`
}

// ReferenceSection holds the bibliography pages split off the back
// of the book.
type ReferenceSection struct {
	SectionType string         `json:"section_type"`
	Title       string         `json:"title"`
	StartPage   int            `json:"start_page"`
	EndPage     int            `json:"end_page"`
	TotalPages  int            `json:"total_pages"`
	FullText    string         `json:"full_text"`
	Pages       []extract.Page `json:"pages"`
}

// Structure is the durable per-book artifact consumed by the chunker.
type Structure struct {
	BookID         string            `json:"book_id"`
	Category       string            `json:"category"`
	TotalPages     int               `json:"total_pages"`
	ExtractedPages int               `json:"extracted_pages"`
	HasChapters    bool              `json:"has_chapters"`
	TotalChapters  int               `json:"total_chapters"`
	TotalSections  int               `json:"total_sections"`
	Chapters       []Chapter         `json:"chapters"`
	Sections       []Chapter         `json:"sections"`
	References     *ReferenceSection `json:"references,omitempty"`
}

// Items returns whichever of Chapters or Sections carries the content.
func (s *Structure) Items() []Chapter {
	if s.HasChapters {
		return s.Chapters
	}
	return s.Sections
}

// Builder turns an extracted page set into a Structure.
type Builder struct {
	log          *slog.Logger
	sectionPages int
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(log *slog.Logger) Option {
	return func(b *Builder) { b.log = log }
}

// WithSectionPages sets the page count per fallback section.
func WithSectionPages(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.sectionPages = n
		}
	}
}

// NewBuilder returns a Builder with default settings.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		log:          slog.Default(),
		sectionPages: 20,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build structures a book. When spec is nil the book is partitioned into
// fixed-size sections instead of detected chapters.
func (b *Builder) Build(set *extract.PageSet, spec *BookSpec) (*Structure, error) {
	clean := FilterNoisePages(set.Pages)
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, set.BookID)
	}
	b.log.Info("filtered noise pages",
		"book_id", set.BookID,
		"kept", len(clean),
		"removed", len(set.Pages)-len(clean))

	content, refPages := splitReferences(clean)
	if len(refPages) > 0 {
		b.log.Info("split reference section",
			"book_id", set.BookID,
			"reference_pages", len(refPages))
	}

	out := &Structure{
		BookID:         set.BookID,
		Category:       set.Category,
		TotalPages:     set.TotalPages,
		ExtractedPages: len(clean),
		HasChapters:    set.Category == "chapter",
		References:     buildReferenceSection(refPages),
	}

	var items []Chapter
	if spec != nil && len(spec.Chapters) > 0 {
		items = b.buildChapters(content, spec.Chapters, out.HasChapters)
	} else {
		out.HasChapters = false
		items = b.buildSections(content)
	}

	if out.HasChapters {
		out.Chapters = items
		out.TotalChapters = len(items)
	} else {
		out.Sections = items
		out.TotalSections = len(items)
	}
	return out, nil
}

// splitReferences separates trailing bibliography pages from content.
func splitReferences(pages []extract.Page) (content, refs []extract.Page) {
	idx := FindReferenceStart(pages)
	if idx < 0 {
		return pages, nil
	}
	return pages[:idx], pages[idx:]
}

func buildReferenceSection(refPages []extract.Page) *ReferenceSection {
	if len(refPages) == 0 {
		return nil
	}
	cleaned := make([]extract.Page, len(refPages))
	texts := make([]string, len(refPages))
	for i, p := range refPages {
		p.Text = patterns.RemovePageHeaders(p.Text)
		cleaned[i] = p
		texts[i] = p.Text
	}
	return &ReferenceSection{
		SectionType: "references",
		Title:       "References",
		StartPage:   cleaned[0].PageNo,
		EndPage:     cleaned[len(cleaned)-1].PageNo,
		TotalPages:  len(cleaned),
		FullText:    strings.Join(texts, "\n\n"),
		Pages:       cleaned,
	}
}

// buildChapters maps declared chapters onto detected page boundaries.
func (b *Builder) buildChapters(content []extract.Page, specs []ChapterSpec, hasChapters bool) []Chapter {
	if len(content) == 0 {
		return nil
	}

	titles := make([]string, len(specs))
	for i, ch := range specs {
		titles[i] = ch.Title
	}
	boundaries := DetectBoundaries(content, titles)

	share := len(content) / len(specs)
	var chapters []Chapter

	for i, spec := range specs {
		start, detected := boundaries[i]
		if !detected {
			start = i * share
		}

		var end int
		switch {
		case i+1 < len(specs):
			if next, ok := boundaries[i+1]; ok {
				end = next - 1
			} else {
				end = start + share
				if end > len(content)-1 {
					end = len(content) - 1
				}
			}
		default:
			end = len(content) - 1
		}

		if start < 0 || start > end || start >= len(content) {
			continue
		}
		if end >= len(content) {
			end = len(content) - 1
		}

		pages := cleanChapterPages(content[start : end+1])
		if len(pages) == 0 {
			continue
		}

		texts := make([]string, len(pages))
		for j, p := range pages {
			texts[j] = p.Text
		}

		ch := Chapter{
			Title:       RefineTitle(pages[0].Text, spec.Title),
			Subheadings: spec.Subheadings,
			StartPage:   pages[0].PageNo,
			EndPage:     pages[len(pages)-1].PageNo,
			TotalPages:  len(pages),
			FullText:    strings.Join(texts, "\n\n"),
			Pages:       pages,
		}
		if hasChapters {
			ch.ChapterNumber = spec.ChapterNumber
		} else {
			ch.SectionNumber = len(chapters) + 1
		}
		chapters = append(chapters, ch)
	}
	return chapters
}

// buildSections partitions content into fixed-size runs of pages.
func (b *Builder) buildSections(content []extract.Page) []Chapter {
	var sections []Chapter
	for i := 0; i < len(content); i += b.sectionPages {
		end := i + b.sectionPages
		if end > len(content) {
			end = len(content)
		}
		pages := cleanChapterPages(content[i:end])
		if len(pages) == 0 {
			continue
		}

		texts := make([]string, len(pages))
		for j, p := range pages {
			texts[j] = p.Text
		}
		sections = append(sections, Chapter{
			SectionNumber: len(sections) + 1,
			Title:         fmt.Sprintf("Section %d", len(sections)+1),
			StartPage:     pages[0].PageNo,
			EndPage:       pages[len(pages)-1].PageNo,
			TotalPages:    len(pages),
			FullText:      strings.Join(texts, "\n\n"),
			Pages:         pages,
		})
	}
	return sections
}

// cleanChapterPages strips running headers and trailing citation
// fragments from every page in a chapter.
func cleanChapterPages(pages []extract.Page) []extract.Page {
	out := make([]extract.Page, len(pages))
	for i, p := range pages {
		p.Text = StripTrailingReferences(patterns.RemovePageHeaders(p.Text))
		out[i] = p
	}
	return out
}

// DetectBoundaries finds the content-page index where each declared
// chapter starts. A page starts chapter i when ≥60% of the title's
// keywords (words longer than three characters) appear in one of the
// page's first fifteen non-blank lines. Detections are kept monotonic:
// a chapter cannot start before a previously detected one.
func DetectBoundaries(pages []extract.Page, titles []string) map[int]int {
	keywords := make([][]string, len(titles))
	for i, title := range titles {
		for _, w := range strings.Fields(strings.ToLower(title)) {
			if len(w) > 3 {
				keywords[i] = append(keywords[i], w)
			}
		}
	}

	boundaries := make(map[int]int, len(titles))
	for idx, page := range pages {
		lines := nonBlankLines(patterns.RemovePageHeaders(page.Text))
		if len(lines) > 15 {
			lines = lines[:15]
		}

		for ci := range titles {
			if _, done := boundaries[ci]; done || len(keywords[ci]) == 0 {
				continue
			}
			for _, line := range lines {
				lower := strings.ToLower(line)
				matches := 0
				for _, kw := range keywords[ci] {
					if strings.Contains(lower, kw) {
						matches++
					}
				}
				if float64(matches)/float64(len(keywords[ci])) >= 0.6 {
					boundaries[ci] = idx
					break
				}
			}
		}
	}

	// Drop out-of-order detections so start pages stay non-decreasing.
	last := -1
	for i := range titles {
		start, ok := boundaries[i]
		if !ok {
			continue
		}
		if start < last {
			delete(boundaries, i)
			continue
		}
		last = start
	}
	return boundaries
}

// RefineTitle extracts the chapter's real title from its opening page,
// falling back to the declared one when no line qualifies.
func RefineTitle(firstPageText, declared string) string {
	lines := nonBlankLines(patterns.RemovePageHeaders(firstPageText))
	if len(lines) > 10 {
		lines = lines[:10]
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) < 10 || len(line) > 80 {
			continue
		}
		first := rune(line[0])
		if first < 'A' || first > 'Z' {
			continue
		}
		if line == strings.ToUpper(line) {
			continue
		}
		if patterns.IsSentenceStarter(line) {
			continue
		}
		if patterns.HasMidSentenceBoundary(line) {
			continue
		}
		return strings.TrimSpace(patterns.StripChapterPrefix(line))
	}
	return declared
}
