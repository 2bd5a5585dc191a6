package medibook

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ChunkSize != 325 || cfg.ChunkOverlap != 80 {
		t.Errorf("chunk sizes = %d/%d, want 325/80", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.MinChunkSize != 120 || cfg.MaxChunkSize != 400 {
		t.Errorf("chunk bounds = %d/%d, want 120/400", cfg.MinChunkSize, cfg.MaxChunkSize)
	}
	if cfg.TopK != 5 {
		t.Errorf("top_k = %d, want 5", cfg.TopK)
	}
	if cfg.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", cfg.Temperature)
	}
	if cfg.MaxTokens != 1000 {
		t.Errorf("max_tokens = %d, want 1000", cfg.MaxTokens)
	}
	if cfg.SectionPages != 20 {
		t.Errorf("section_pages = %d, want 20", cfg.SectionPages)
	}
	if cfg.EmbeddingDim != 1024 {
		t.Errorf("embedding_dim = %d, want 1024", cfg.EmbeddingDim)
	}
}

func TestResolveDBPath(t *testing.T) {
	cfg := Config{OutputDir: "out"}
	if got := cfg.resolveDBPath(); got != filepath.Join("out", "medibook.db") {
		t.Errorf("default db path = %q", got)
	}

	cfg.DBPath = "/tmp/custom.db"
	if got := cfg.resolveDBPath(); got != "/tmp/custom.db" {
		t.Errorf("explicit db path = %q", got)
	}
}

func TestNewRejectsZeroEmbeddingDim(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmbeddingDim = 0
	cfg.OutputDir = t.TempDir()

	_, err := New(cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSortResults(t *testing.T) {
	results := []BookResult{
		{Path: "b.pdf"},
		{Path: "a.pdf", Err: errors.New("bad")},
		{Path: "c.pdf"},
		{Path: "z.pdf", Err: errors.New("worse")},
	}
	SortResults(results)

	if results[0].Path != "a.pdf" || results[1].Path != "z.pdf" {
		t.Errorf("failures not ordered first: %v, %v", results[0].Path, results[1].Path)
	}
	if results[2].Path != "b.pdf" || results[3].Path != "c.pdf" {
		t.Errorf("successes not ordered by path: %v, %v", results[2].Path, results[3].Path)
	}
}
