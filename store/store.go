// Package store persists chunked books and their embeddings in SQLite,
// with KNN retrieval through the sqlite-vec extension.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Book represents a row in the books table.
type Book struct {
	ID          string `json:"book_id"`
	Name        string `json:"book_name"`
	Category    string `json:"category"`
	TotalChunks int    `json:"total_chunks"`
	Language    string `json:"language,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// Chunk represents a row in the chunks table.
type Chunk struct {
	ID             int64  `json:"id"`
	BookID         string `json:"book_id"`
	ChunkKey       string `json:"chunk_id"`
	ChunkIndex     int    `json:"chunk_index"`
	Text           string `json:"text"`
	ChunkType      string `json:"chunk_type"`
	SourceType     string `json:"source_type"`
	SectionName    string `json:"section_name,omitempty"`
	TableReference string `json:"table_reference,omitempty"`
	ChapterNumber  int    `json:"chapter_number,omitempty"`
	ChapterTitle   string `json:"chapter_title,omitempty"`
	SectionTitle   string `json:"section_title,omitempty"`
	PageRange      string `json:"page_range"`
	TokenEstimate  int    `json:"token_estimate"`
	CharCount      int    `json:"char_count"`
	HasOverlap     bool   `json:"has_overlap"`
}

// SearchResult holds a retrieved chunk with its similarity score and
// book attribution.
type SearchResult struct {
	ChunkID       int64   `json:"chunk_id"`
	Text          string  `json:"text"`
	BookID        string  `json:"book_id"`
	BookName      string  `json:"book_name"`
	Category      string  `json:"category"`
	ChunkType     string  `json:"chunk_type"`
	ChapterTitle  string  `json:"chapter_title,omitempty"`
	SectionTitle  string  `json:"section_title,omitempty"`
	ChapterNumber int     `json:"chapter_number,omitempty"`
	PageRange     string  `json:"page_range"`
	Score         float64 `json:"score"`
}

// ChapterInfo is one distinct chapter of an indexed book.
type ChapterInfo struct {
	ChapterNumber int    `json:"chapter_number,omitempty"`
	Title         string `json:"title"`
	PageRange     string `json:"page_range"`
	ChunkCount    int    `json:"chunk_count"`
}

// Stats holds corpus-wide counts.
type Stats struct {
	Books      int `json:"books"`
	Chunks     int `json:"chunks"`
	Embeddings int `json:"embeddings"`
	Tables     int `json:"table_chunks"`
}

// Store wraps the SQLite database for all medibook persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec virtual table.
func New(dbPath string, embeddingDim int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Book operations ---

// UpsertBook inserts or updates a book record.
func (s *Store) UpsertBook(ctx context.Context, b Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, name, category, total_chunks, language)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			total_chunks = excluded.total_chunks,
			language = excluded.language,
			updated_at = CURRENT_TIMESTAMP
	`, b.ID, b.Name, b.Category, b.TotalChunks, b.Language)
	return err
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, bookID string) (*Book, error) {
	b := &Book{}
	var language sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, total_chunks, language, created_at, updated_at
		FROM books WHERE id = ?
	`, bookID).Scan(&b.ID, &b.Name, &b.Category, &b.TotalChunks,
		&language, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Language = language.String
	return b, nil
}

// ListBooks returns all indexed books ordered by name.
func (s *Store) ListBooks(ctx context.Context) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, total_chunks, language, created_at, updated_at
		FROM books ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		var language sql.NullString
		if err := rows.Scan(&b.ID, &b.Name, &b.Category, &b.TotalChunks,
			&language, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Language = language.String
		books = append(books, b)
	}
	return books, rows.Err()
}

// DeleteBookData removes all chunks and embeddings for a book but keeps
// the book record. Used before re-indexing.
func (s *Store) DeleteBookData(ctx context.Context, bookID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_chunks WHERE chunk_id IN (
				SELECT id FROM chunks WHERE book_id = ?
			)`, bookID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE book_id = ?", bookID)
		return err
	})
}

// DeleteBook removes a book and cascades to all related data.
func (s *Store) DeleteBook(ctx context.Context, bookID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_chunks WHERE chunk_id IN (
				SELECT id FROM chunks WHERE book_id = ?
			)`, bookID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM chunks WHERE book_id = ?", bookID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM books WHERE id = ?", bookID)
		return err
	})
}

// --- Chunk operations ---

// InsertChunks inserts a batch of chunks and returns their database IDs
// in input order.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) ([]int64, error) {
	ids := make([]int64, len(chunks))

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (book_id, chunk_key, chunk_index, text, chunk_type,
				source_type, section_name, table_reference, chapter_number,
				chapter_title, section_title, page_range, token_estimate,
				char_count, has_overlap)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, c := range chunks {
			res, err := stmt.ExecContext(ctx,
				c.BookID, c.ChunkKey, c.ChunkIndex, c.Text, c.ChunkType,
				c.SourceType, c.SectionName, c.TableReference, c.ChapterNumber,
				c.ChapterTitle, c.SectionTitle, c.PageRange, c.TokenEstimate,
				c.CharCount, c.HasOverlap)
			if err != nil {
				return err
			}
			if ids[i], err = res.LastInsertId(); err != nil {
				return err
			}
		}
		return nil
	})

	return ids, err
}

// GetChunksByBook returns all chunks for a book in chunk order.
func (s *Store) GetChunksByBook(ctx context.Context, bookID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, chunk_key, chunk_index, text, chunk_type,
			source_type, section_name, table_reference, chapter_number,
			chapter_title, section_title, page_range, token_estimate,
			char_count, has_overlap
		FROM chunks WHERE book_id = ? ORDER BY chunk_index
	`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// BookChapters returns the distinct chapters (or sections) of an indexed
// book with their chunk counts.
func (s *Store) BookChapters(ctx context.Context, bookID string) ([]ChapterInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chapter_number,
			COALESCE(NULLIF(chapter_title, ''), section_title),
			page_range, COUNT(*)
		FROM chunks
		WHERE book_id = ?
		GROUP BY chapter_number, chapter_title, section_title, page_range
		ORDER BY chapter_number, page_range
	`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []ChapterInfo
	for rows.Next() {
		var ch ChapterInfo
		var title sql.NullString
		if err := rows.Scan(&ch.ChapterNumber, &title, &ch.PageRange, &ch.ChunkCount); err != nil {
			return nil, err
		}
		ch.Title = title.String
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

// --- Embedding operations ---

// InsertEmbedding stores a vector embedding for a chunk.
func (s *Store) InsertEmbedding(ctx context.Context, chunkID int64, embedding []float32) error {
	if len(embedding) != s.embeddingDim {
		return fmt.Errorf("embedding dimension %d, store expects %d", len(embedding), s.embeddingDim)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)",
		chunkID, serializeFloat32(embedding))
	return err
}

// VectorSearch performs a KNN search returning the top-k nearest chunks
// with their book attribution. Score is 1 - distance.
func (s *Store) VectorSearch(ctx context.Context, queryEmbedding []float32, k int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.distance,
			c.text, c.chunk_type, c.chapter_number, c.chapter_title,
			c.section_title, c.page_range, c.book_id,
			b.name, b.category
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN books b ON b.id = c.book_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var distance float64
		var chapterTitle, sectionTitle sql.NullString
		if err := rows.Scan(&r.ChunkID, &distance,
			&r.Text, &r.ChunkType, &r.ChapterNumber, &chapterTitle,
			&sectionTitle, &r.PageRange, &r.BookID,
			&r.BookName, &r.Category); err != nil {
			return nil, err
		}
		r.ChapterTitle = chapterTitle.String
		r.SectionTitle = sectionTitle.String
		r.Score = 1.0 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// ChunkHasEmbedding checks if a specific chunk has a vector embedding.
func (s *Store) ChunkHasEmbedding(ctx context.Context, chunkID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vec_chunks WHERE chunk_id = ?", chunkID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// --- Stats ---

// CorpusStats returns counts of books, chunks, embeddings, and tables.
func (s *Store) CorpusStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM books", &stats.Books},
		{"SELECT COUNT(*) FROM chunks", &stats.Chunks},
		{"SELECT COUNT(*) FROM vec_chunks", &stats.Embeddings},
		{"SELECT COUNT(*) FROM chunks WHERE chunk_type = 'table'", &stats.Tables},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanChunk(rows *sql.Rows) (Chunk, error) {
	var c Chunk
	var sectionName, tableRef, chapterTitle, sectionTitle sql.NullString
	err := rows.Scan(&c.ID, &c.BookID, &c.ChunkKey, &c.ChunkIndex, &c.Text,
		&c.ChunkType, &c.SourceType, &sectionName, &tableRef, &c.ChapterNumber,
		&chapterTitle, &sectionTitle, &c.PageRange, &c.TokenEstimate,
		&c.CharCount, &c.HasOverlap)
	if err != nil {
		return c, err
	}
	c.SectionName = sectionName.String
	c.TableReference = tableRef.String
	c.ChapterTitle = chapterTitle.String
	c.SectionTitle = sectionTitle.String
	return c, nil
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
