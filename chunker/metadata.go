package chunker

import (
	"fmt"
	"strings"

	"github.com/nqureshi/medibook/patterns"
	"github.com/nqureshi/medibook/structure"
)

// Metadata is the enriched per-chunk payload stored alongside the text
// in the vector index.
type Metadata struct {
	BookID         string `json:"book_id"`
	BookName       string `json:"book_name"`
	Category       string `json:"category"`
	ChunkID        string `json:"chunk_id"`
	ChunkIndex     int    `json:"chunk_index"`
	ChunkType      string `json:"chunk_type"`
	HasOverlap     bool   `json:"has_overlap"`
	TokenEstimate  int    `json:"token_estimate"`
	CharCount      int    `json:"char_count"`
	SourceType     string `json:"source_type"`
	SectionName    string `json:"section_name,omitempty"`
	TableReference string `json:"table_reference,omitempty"`
	ChapterNumber  int    `json:"chapter_number,omitempty"`
	ChapterTitle   string `json:"chapter_title,omitempty"`
	SectionTitle   string `json:"section_title,omitempty"`
	PageRange      string `json:"page_range"`
}

// buildMetadata assembles the metadata for one chunk of an item.
func buildMetadata(bookID, bookName, category string, item structure.Chapter, idx int, text, chunkType string, hasOverlap, isChapter bool, tableRef string) Metadata {
	meta := Metadata{
		BookID:        bookID,
		BookName:      bookName,
		Category:      category,
		ChunkID:       fmt.Sprintf("%s_chunk_%d", bookID, idx),
		ChunkIndex:    idx,
		ChunkType:     chunkType,
		HasOverlap:    hasOverlap,
		TokenEstimate: EstimateTokens(text),
		CharCount:     len(text),
		PageRange:     fmt.Sprintf("%d-%d", item.StartPage, item.EndPage),
	}

	if chunkType == "text" {
		meta.SectionName = SectionName(text)
	}
	meta.TableReference = tableRef

	if isChapter {
		meta.SourceType = "chapter"
		meta.ChapterNumber = item.ChapterNumber
		meta.ChapterTitle = item.Title
	} else {
		meta.SourceType = "section"
		meta.SectionTitle = item.Title
	}
	return meta
}

// SectionName returns the standard medical section heading the chunk
// opens with, if one of its first three lines is a marker line.
func SectionName(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 3 {
		lines = lines[:3]
	}
	for _, line := range lines {
		if name, ok := patterns.SectionMarker(strings.TrimSpace(line)); ok {
			return name
		}
	}
	return ""
}
