package chunker

import (
	"errors"
	"fmt"
	"time"

	"github.com/nqureshi/medibook/structure"
)

// ErrNoChunks means a book produced no chunks at all, usually because
// every chapter was below the minimum usable length.
var ErrNoChunks = errors.New("chunker: no chunks produced")

// minItemChars is the floor below which a chapter/section is skipped
// entirely before chunking.
const minItemChars = 500

// Chunk pairs the chunk text with its index payload.
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Statistics summarises a book's chunk set.
type Statistics struct {
	Total       int `json:"total"`
	TextChunks  int `json:"text_chunks"`
	TableChunks int `json:"table_chunks"`
	AvgTokens   int `json:"avg_tokens"`
	MinTokens   int `json:"min_tokens"`
	MaxTokens   int `json:"max_tokens"`
}

// BookChunks is the durable chunk artifact for one book, the input to
// embedding and indexing.
type BookChunks struct {
	BookID      string     `json:"book_id"`
	BookName    string     `json:"book_name"`
	Category    string     `json:"category"`
	TotalChunks int        `json:"total_chunks"`
	Statistics  Statistics `json:"chunk_statistics"`
	Config      Config     `json:"config"`
	CreatedAt   time.Time  `json:"created_at"`
	Chunks      []Chunk    `json:"chunks"`
}

// ChunkBook converts a structured book into its chunk artifact. Tables
// are emitted first within each chapter, then the prose chunks; chunk
// indices are global across the book.
func (c *Chunker) ChunkBook(st *structure.Structure) (*BookChunks, error) {
	bookName := st.BookID
	bookID := GenerateBookID(bookName)

	var all []Chunk
	gidx := 0

	for _, item := range st.Items() {
		if len(item.FullText) < minItemChars {
			continue
		}

		tables, prose := DetectTables(item.FullText)

		for _, table := range tables {
			all = append(all, Chunk{
				Text: table.Content,
				Metadata: buildMetadata(bookID, bookName, st.Category, item,
					gidx, table.Content, "table", false, st.HasChapters, table.Reference),
			})
			gidx++
		}

		for i, text := range c.ChunkText(prose) {
			all = append(all, Chunk{
				Text: text,
				Metadata: buildMetadata(bookID, bookName, st.Category, item,
					gidx, text, "text", i > 0, st.HasChapters, ""),
			})
			gidx++
		}
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChunks, bookName)
	}

	return &BookChunks{
		BookID:      bookID,
		BookName:    bookName,
		Category:    st.Category,
		TotalChunks: len(all),
		Statistics:  summarize(all),
		Config:      c.cfg,
		CreatedAt:   time.Now().UTC(),
		Chunks:      all,
	}, nil
}

func summarize(chunks []Chunk) Statistics {
	stats := Statistics{
		Total:     len(chunks),
		MinTokens: chunks[0].Metadata.TokenEstimate,
	}
	sum := 0
	for _, ch := range chunks {
		t := ch.Metadata.TokenEstimate
		sum += t
		if t < stats.MinTokens {
			stats.MinTokens = t
		}
		if t > stats.MaxTokens {
			stats.MaxTokens = t
		}
		if ch.Metadata.ChunkType == "table" {
			stats.TableChunks++
		}
	}
	stats.TextChunks = stats.Total - stats.TableChunks
	stats.AvgTokens = sum / stats.Total
	return stats
}
