//go:build cgo

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, 4) // dim=4 for test vectors
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.EmbeddingDim() != 4 {
		t.Fatalf("expected embedding dim 4, got %d", s.EmbeddingDim())
	}
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	dbPath := filepath.Join(dir, "test.db")
	s, err := New(dbPath, 4)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

// ---------------------------------------------------------------------------
// Book CRUD
// ---------------------------------------------------------------------------

func sampleBook(id string) Book {
	return Book{
		ID:          id,
		Name:        "gyn_oncology",
		Category:    "chapter",
		TotalChunks: 0,
	}
}

func sampleChunk(bookID string, idx int, text string) Chunk {
	return Chunk{
		BookID:        bookID,
		ChunkKey:      bookID + "_chunk_0",
		ChunkIndex:    idx,
		Text:          text,
		ChunkType:     "text",
		SourceType:    "chapter",
		ChapterNumber: 1,
		ChapterTitle:  "Cervical Cancer",
		PageRange:     "10-42",
		TokenEstimate: len(text) / 4,
		CharCount:     len(text),
		HasOverlap:    idx > 0,
	}
}

func TestUpsertAndGetBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := sampleBook("abc123")
	if err := s.UpsertBook(ctx, b); err != nil {
		t.Fatalf("upserting book: %v", err)
	}

	got, err := s.GetBook(ctx, "abc123")
	if err != nil {
		t.Fatalf("getting book: %v", err)
	}
	if got.Name != b.Name {
		t.Errorf("name: got %q, want %q", got.Name, b.Name)
	}
	if got.Category != "chapter" {
		t.Errorf("category: got %q, want %q", got.Category, "chapter")
	}
}

func TestGetBookNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetBook(ctx, "nonexistent")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUpsertBookUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := sampleBook("upd001")
	if err := s.UpsertBook(ctx, b); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Upsert again with a new chunk count -- same id triggers UPDATE.
	b.TotalChunks = 42
	b.Language = "eng"
	if err := s.UpsertBook(ctx, b); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetBook(ctx, "upd001")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.TotalChunks != 42 {
		t.Errorf("total_chunks not updated: got %d", got.TotalChunks)
	}
	if got.Language != "eng" {
		t.Errorf("language not updated: got %q", got.Language)
	}
}

func TestListBooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"id_a", "id_b", "id_c"} {
		b := sampleBook(id)
		b.Name = id
		if err := s.UpsertBook(ctx, b); err != nil {
			t.Fatalf("insert book %d: %v", i, err)
		}
	}

	books, err := s.ListBooks(ctx)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(books) != 3 {
		t.Fatalf("expected 3 books, got %d", len(books))
	}
	if books[0].Name != "id_a" {
		t.Errorf("expected name ordering, got %q first", books[0].Name)
	}
}

// ---------------------------------------------------------------------------
// Chunk operations
// ---------------------------------------------------------------------------

func TestInsertAndGetChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertBook(ctx, sampleBook("bk1")); err != nil {
		t.Fatalf("upsert book: %v", err)
	}

	chunks := []Chunk{
		sampleChunk("bk1", 0, "first chunk"),
		sampleChunk("bk1", 1, "second chunk"),
		sampleChunk("bk1", 2, "third chunk"),
	}
	chunks[2].ChunkType = "table"
	chunks[2].TableReference = "Table 4.2"

	ids, err := s.InsertChunks(ctx, chunks)
	if err != nil {
		t.Fatalf("inserting chunks: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}

	got, err := s.GetChunksByBook(ctx, "bk1")
	if err != nil {
		t.Fatalf("getting chunks: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}

	// Verify ordering by chunk_index.
	if got[0].Text != "first chunk" {
		t.Errorf("first chunk text: got %q", got[0].Text)
	}
	if got[0].HasOverlap {
		t.Error("first chunk should not have overlap")
	}
	if !got[1].HasOverlap {
		t.Error("second chunk should have overlap")
	}
	if got[2].TableReference != "Table 4.2" {
		t.Errorf("table_reference: got %q", got[2].TableReference)
	}
}

func TestBookChapters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertBook(ctx, sampleBook("bk2")); err != nil {
		t.Fatalf("upsert book: %v", err)
	}

	c1 := sampleChunk("bk2", 0, "cervical text one")
	c2 := sampleChunk("bk2", 1, "cervical text two")
	c3 := sampleChunk("bk2", 2, "ovarian text")
	c3.ChapterNumber = 2
	c3.ChapterTitle = "Ovarian Cancer"
	c3.PageRange = "43-90"

	if _, err := s.InsertChunks(ctx, []Chunk{c1, c2, c3}); err != nil {
		t.Fatalf("insert chunks: %v", err)
	}

	chapters, err := s.BookChapters(ctx, "bk2")
	if err != nil {
		t.Fatalf("book chapters: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Title != "Cervical Cancer" || chapters[0].ChunkCount != 2 {
		t.Errorf("chapter 1 = %+v", chapters[0])
	}
	if chapters[1].Title != "Ovarian Cancer" || chapters[1].PageRange != "43-90" {
		t.Errorf("chapter 2 = %+v", chapters[1])
	}
}

// ---------------------------------------------------------------------------
// Embedding / vector search
// ---------------------------------------------------------------------------

func TestInsertEmbeddingAndVectorSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertBook(ctx, sampleBook("vec1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	chunks := []Chunk{
		sampleChunk("vec1", 0, "alpha content"),
		sampleChunk("vec1", 1, "beta content"),
	}
	ids, err := s.InsertChunks(ctx, chunks)
	if err != nil {
		t.Fatalf("insert chunks: %v", err)
	}

	// Orthogonal embeddings so distance is clear.
	if err := s.InsertEmbedding(ctx, ids[0], []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("embedding 0: %v", err)
	}
	if err := s.InsertEmbedding(ctx, ids[1], []float32{0, 1, 0, 0}); err != nil {
		t.Fatalf("embedding 1: %v", err)
	}

	// Query vector close to first embedding.
	results, err := s.VectorSearch(ctx, []float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("vector search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// First result should be the one with embedding {1,0,0,0}.
	if results[0].Text != "alpha content" {
		t.Errorf("expected nearest to be 'alpha content', got %q", results[0].Text)
	}
	if results[0].BookName != "gyn_oncology" {
		t.Errorf("book_name: got %q, want %q", results[0].BookName, "gyn_oncology")
	}
	if results[0].ChapterTitle != "Cervical Cancer" {
		t.Errorf("chapter_title: got %q", results[0].ChapterTitle)
	}
	if results[0].PageRange != "10-42" {
		t.Errorf("page_range: got %q", results[0].PageRange)
	}

	// The nearest result should have a higher score than the second.
	if results[0].Score <= results[1].Score {
		t.Errorf("expected first result score (%f) > second (%f)", results[0].Score, results[1].Score)
	}
}

func TestVectorSearchTopK(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.UpsertBook(ctx, sampleBook("topk"))
	chunks := []Chunk{
		sampleChunk("topk", 0, "c1"),
		sampleChunk("topk", 1, "c2"),
		sampleChunk("topk", 2, "c3"),
	}
	ids, _ := s.InsertChunks(ctx, chunks)

	_ = s.InsertEmbedding(ctx, ids[0], []float32{1, 0, 0, 0})
	_ = s.InsertEmbedding(ctx, ids[1], []float32{0, 1, 0, 0})
	_ = s.InsertEmbedding(ctx, ids[2], []float32{0, 0, 1, 0})

	// Request only top-1.
	results, err := s.VectorSearch(ctx, []float32{0, 0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("vector search k=1: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Text != "c3" {
		t.Errorf("expected c3, got %q", results[0].Text)
	}
}

func TestInsertEmbeddingWrongDim(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.UpsertBook(ctx, sampleBook("dim"))
	ids, _ := s.InsertChunks(ctx, []Chunk{sampleChunk("dim", 0, "x")})

	if err := s.InsertEmbedding(ctx, ids[0], []float32{1, 0}); err == nil {
		t.Fatal("expected error for wrong embedding dimension")
	}
}

// ---------------------------------------------------------------------------
// DeleteBookData (keeps book, removes chunks and embeddings)
// ---------------------------------------------------------------------------

func TestDeleteBookData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.UpsertBook(ctx, sampleBook("deldata"))
	chunks := []Chunk{
		sampleChunk("deldata", 0, "keep me?"),
		sampleChunk("deldata", 1, "and me?"),
	}
	ids, _ := s.InsertChunks(ctx, chunks)
	_ = s.InsertEmbedding(ctx, ids[0], []float32{1, 0, 0, 0})
	_ = s.InsertEmbedding(ctx, ids[1], []float32{0, 1, 0, 0})

	if err := s.DeleteBookData(ctx, "deldata"); err != nil {
		t.Fatalf("delete book data: %v", err)
	}

	// Book should still exist.
	if _, err := s.GetBook(ctx, "deldata"); err != nil {
		t.Fatalf("book should still exist: %v", err)
	}

	// Chunks should be gone.
	remaining, err := s.GetChunksByBook(ctx, "deldata")
	if err != nil {
		t.Fatalf("get chunks: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected 0 chunks after data delete, got %d", len(remaining))
	}

	// Vector search should return no results for this book's embeddings.
	results, err := s.VectorSearch(ctx, []float32{1, 0, 0, 0}, 10)
	if err != nil {
		t.Fatalf("vector search after delete: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 vector results after data delete, got %d", len(results))
	}
}

func TestDeleteBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.UpsertBook(ctx, sampleBook("delbook"))
	ids, _ := s.InsertChunks(ctx, []Chunk{sampleChunk("delbook", 0, "gone")})
	_ = s.InsertEmbedding(ctx, ids[0], []float32{1, 0, 0, 0})

	if err := s.DeleteBook(ctx, "delbook"); err != nil {
		t.Fatalf("delete book: %v", err)
	}

	if _, err := s.GetBook(ctx, "delbook"); err != sql.ErrNoRows {
		t.Fatalf("expected book gone, got err=%v", err)
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func TestCorpusStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.UpsertBook(ctx, sampleBook("stats"))
	c1 := sampleChunk("stats", 0, "prose")
	c2 := sampleChunk("stats", 1, "a\t1\t2\nb\t3\t4")
	c2.ChunkType = "table"
	ids, _ := s.InsertChunks(ctx, []Chunk{c1, c2})
	_ = s.InsertEmbedding(ctx, ids[0], []float32{1, 0, 0, 0})

	stats, err := s.CorpusStats(ctx)
	if err != nil {
		t.Fatalf("corpus stats: %v", err)
	}
	if stats.Books != 1 || stats.Chunks != 2 || stats.Embeddings != 1 || stats.Tables != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

// ---------------------------------------------------------------------------
// ChunkHasEmbedding
// ---------------------------------------------------------------------------

func TestChunkHasEmbedding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.UpsertBook(ctx, sampleBook("emb"))
	ids, _ := s.InsertChunks(ctx, []Chunk{
		sampleChunk("emb", 0, "embedded"),
		sampleChunk("emb", 1, "not embedded"),
	})
	_ = s.InsertEmbedding(ctx, ids[0], []float32{1, 0, 0, 0})

	has, err := s.ChunkHasEmbedding(ctx, ids[0])
	if err != nil {
		t.Fatalf("check embedding: %v", err)
	}
	if !has {
		t.Error("expected chunk 0 to have an embedding")
	}

	has, err = s.ChunkHasEmbedding(ctx, ids[1])
	if err != nil {
		t.Fatalf("check embedding: %v", err)
	}
	if has {
		t.Error("expected chunk 1 to have no embedding")
	}
}
