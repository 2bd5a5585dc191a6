package medibook

import "path/filepath"

// Config holds all configuration for the medibook pipeline and server.
type Config struct {
	// DataDir is the corpus root. Books live in category subdirectories:
	// <DataDir>/chapter/ and <DataDir>/non_chapter/.
	DataDir string `json:"data_dir"`

	// OutputDir receives the per-book JSON artifacts (pages, structure,
	// chunks) and, when DBPath is empty, the vector database.
	OutputDir string `json:"output_dir"`

	// DBPath is the full path to the SQLite database file. If empty,
	// defaults to <OutputDir>/medibook.db.
	DBPath string `json:"db_path"`

	// ChapterSpecPath points at the chapter specification, JSON or XLSX.
	// Optional; books without a spec entry fall back to fixed-size
	// sections.
	ChapterSpecPath string `json:"chapter_spec_path"`

	// LLM providers.
	Chat      LLMConfig `json:"chat"`
	Embedding LLMConfig `json:"embedding"`

	// EmbeddingDim must match the embedding model.
	EmbeddingDim int `json:"embedding_dim"`

	// Chunking parameters, in estimated tokens.
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
	MinChunkSize int `json:"min_chunk_size"`
	MaxChunkSize int `json:"max_chunk_size"`

	// SectionPages is the fixed section length, in pages, for books
	// without a chapter specification.
	SectionPages int `json:"section_pages"`

	// Workers bounds per-book parallelism in corpus runs.
	Workers int `json:"workers"`

	// Retrieval and generation.
	TopK        int     `json:"top_k"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`

	// OCRLanguage is the tesseract language for image-based PDFs.
	OCRLanguage string `json:"ocr_language"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider"` // ollama, openai, xai, custom
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
}

// DefaultConfig returns a Config with sensible defaults for local
// inference: Ollama for both chat and BGE embeddings.
func DefaultConfig() Config {
	return Config{
		DataDir:   "data",
		OutputDir: "output",
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "bge-large",
			BaseURL:  "http://localhost:11434",
		},
		EmbeddingDim: 1024,
		ChunkSize:    325,
		ChunkOverlap: 80,
		MinChunkSize: 120,
		MaxChunkSize: 400,
		SectionPages: 20,
		Workers:      2,
		TopK:         5,
		Temperature:  0.1,
		MaxTokens:    1000,
		OCRLanguage:  "eng",
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.OutputDir, "medibook.db")
}
