// Package rag answers medical questions over the indexed corpus:
// embed the query, retrieve the nearest chunks, and generate a grounded
// answer with source attribution.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nqureshi/medibook/llm"
	"github.com/nqureshi/medibook/store"
)

// ErrNoResults indicates that retrieval found no relevant passages.
var ErrNoResults = errors.New("rag: no relevant passages found")

// queryPrefix is the BGE instruction prepended to queries before
// embedding. Passage embeddings are computed without it.
const queryPrefix = "Represent this sentence for searching relevant passages: "

// Searcher retrieves the k nearest chunks for a query embedding.
type Searcher interface {
	VectorSearch(ctx context.Context, queryEmbedding []float32, k int) ([]store.SearchResult, error)
}

// Config holds the retrieval and generation parameters.
type Config struct {
	TopK        int     `json:"top_k"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultConfig returns the serving defaults.
func DefaultConfig() Config {
	return Config{
		TopK:        5,
		Temperature: 0.1,
		MaxTokens:   1000,
	}
}

// Source is one retrieved passage cited in an answer.
type Source struct {
	Rank         int     `json:"rank"`
	Score        float64 `json:"score"`
	Text         string  `json:"text"`
	BookName     string  `json:"book_name"`
	Category     string  `json:"category"`
	ChapterTitle string  `json:"chapter_title,omitempty"`
	SectionTitle string  `json:"section_title,omitempty"`
	PageRange    string  `json:"page_range"`
	ChunkType    string  `json:"chunk_type"`
}

// Answer is a generated response with its supporting sources.
type Answer struct {
	Text        string   `json:"answer"`
	Sources     []Source `json:"sources"`
	Model       string   `json:"model,omitempty"`
	TotalTokens int      `json:"total_tokens,omitempty"`
}

// Engine ties the embedding provider, the vector index, and the chat
// provider together.
type Engine struct {
	searcher Searcher
	chat     llm.Provider
	embedder llm.Provider
	cfg      Config
	log      *slog.Logger
}

// NewEngine creates a retrieval engine. A zero TopK or MaxTokens in cfg
// falls back to the defaults.
func NewEngine(searcher Searcher, chat, embedder llm.Provider, cfg Config, log *slog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = def.Temperature
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		searcher: searcher,
		chat:     chat,
		embedder: embedder,
		cfg:      cfg,
		log:      log,
	}
}

// retrieve embeds the query and returns the top-k chunks.
func (e *Engine) retrieve(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	embeddings, err := e.embedder.Embed(ctx, []string{queryPrefix + query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("embedding query: empty embedding returned")
	}

	results, err := e.searcher.VectorSearch(ctx, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	e.log.Debug("retrieved context",
		"query_chars", len(query),
		"results", len(results),
		"top_score", results[0].Score,
	)
	return results, nil
}

// Ask answers a question grounded in the retrieved passages.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	results, err := e.retrieve(ctx, question, e.cfg.TopK)
	if err != nil {
		return nil, err
	}

	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: buildUserPrompt(question, results)},
		},
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	return &Answer{
		Text:        resp.Content,
		Sources:     toSources(results),
		Model:       resp.Model,
		TotalTokens: resp.TotalTokens,
	}, nil
}

func toSources(results []store.SearchResult) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			Rank:         i + 1,
			Score:        r.Score,
			Text:         r.Text,
			BookName:     r.BookName,
			Category:     r.Category,
			ChapterTitle: r.ChapterTitle,
			SectionTitle: r.SectionTitle,
			PageRange:    r.PageRange,
			ChunkType:    r.ChunkType,
		}
	}
	return sources
}
