package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- Indexed books, keyed by the stable nanoid-style book id
CREATE TABLE IF NOT EXISTS books (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    category TEXT NOT NULL,
    total_chunks INTEGER DEFAULT 0,
    language TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Retrieval chunks with their enriched metadata flattened into columns
CREATE TABLE IF NOT EXISTS chunks (
    id INTEGER PRIMARY KEY,
    book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    chunk_key TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    text TEXT NOT NULL,
    chunk_type TEXT NOT NULL,
    source_type TEXT NOT NULL,
    section_name TEXT,
    table_reference TEXT,
    chapter_number INTEGER DEFAULT 0,
    chapter_title TEXT,
    section_title TEXT,
    page_range TEXT,
    token_estimate INTEGER,
    char_count INTEGER,
    has_overlap BOOLEAN DEFAULT 0,
    UNIQUE(book_id, chunk_index)
);

-- Vector embeddings via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_chunks_book ON chunks(book_id);
CREATE INDEX IF NOT EXISTS idx_chunks_type ON chunks(chunk_type);
CREATE INDEX IF NOT EXISTS idx_chunks_chapter ON chunks(book_id, chapter_number);
`, embeddingDim)
}
