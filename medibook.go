// Package medibook turns medical textbook PDFs into a structured,
// chunked, and vector-indexed corpus, and answers questions over it.
package medibook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nqureshi/medibook/chunker"
	"github.com/nqureshi/medibook/extract"
	"github.com/nqureshi/medibook/llm"
	"github.com/nqureshi/medibook/rag"
	"github.com/nqureshi/medibook/store"
	"github.com/nqureshi/medibook/structure"
)

// Pipeline is the main entry point: per-book processing (extract →
// structure → chunk → embed → index) and corpus-grounded serving.
type Pipeline struct {
	cfg       Config
	store     *store.Store
	chatLLM   llm.Provider
	embedLLM  llm.Provider
	extractor *extract.Extractor
	builder   *structure.Builder
	chunkr    *chunker.Chunker
	engine    *rag.Engine
	specs     map[string]structure.BookSpec
	log       *slog.Logger
}

// New creates a Pipeline from configuration.
func New(cfg Config) (*Pipeline, error) {
	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("%w: embedding_dim must be positive", ErrInvalidConfig)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	s, err := store.New(cfg.resolveDBPath(), cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	chatLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	embedLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	var specs map[string]structure.BookSpec
	if cfg.ChapterSpecPath != "" {
		if strings.HasSuffix(strings.ToLower(cfg.ChapterSpecPath), ".xlsx") {
			specs, err = structure.LoadSpecsXLSX(cfg.ChapterSpecPath)
		} else {
			specs, err = structure.LoadSpecs(cfg.ChapterSpecPath)
		}
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("loading chapter specs: %w", err)
		}
	}

	log := slog.Default()

	engine := rag.NewEngine(s, chatLLM, embedLLM, rag.Config{
		TopK:        cfg.TopK,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, log)

	return &Pipeline{
		cfg:       cfg,
		store:     s,
		chatLLM:   chatLLM,
		embedLLM:  embedLLM,
		extractor: extract.New(),
		builder: structure.NewBuilder(
			structure.WithLogger(log),
			structure.WithSectionPages(cfg.SectionPages),
		),
		chunkr: chunker.New(chunker.Config{
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
			MinChunkSize: cfg.MinChunkSize,
			MaxChunkSize: cfg.MaxChunkSize,
		}),
		engine: engine,
		specs:  specs,
		log:    log,
	}, nil
}

// Close shuts down the pipeline.
func (p *Pipeline) Close() error {
	p.extractor.Close()
	return p.store.Close()
}

// Store returns the underlying store for diagnostic access.
func (p *Pipeline) Store() *store.Store {
	return p.store
}

// ProcessBook runs one PDF through the full pipeline and indexes the
// result. Pages, structure, and chunk artifacts are written to the
// output directory, namespaced by category and book id.
func (p *Pipeline) ProcessBook(ctx context.Context, path, category string) (*chunker.BookChunks, error) {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	bookName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	start := time.Now()

	// Chapter spec lookup. Chapter-category books without a spec fall
	// back to fixed-size sections rather than failing.
	var spec *structure.BookSpec
	if category == "chapter" {
		if found, ok := structure.FindSpec(p.specs, bookName); ok {
			spec = &found
		} else {
			p.log.Warn("no chapter spec for book, using sections",
				"book", bookName)
		}
	}

	opts := extract.Options{Category: category, Language: p.cfg.OCRLanguage}
	if spec != nil {
		ranges := make([]extract.ChapterRange, len(spec.Chapters))
		for i, ch := range spec.Chapters {
			ranges[i] = extract.ChapterRange{
				Number:    ch.ChapterNumber,
				Title:     ch.Title,
				StartPage: ch.StartPage,
				EndPage:   ch.EndPage,
			}
		}
		opts.Hints = extract.BuildHints(ranges)
	}

	p.log.Info("extracting pages", "book", bookName, "category", category)
	pages, err := p.extractor.PDF(ctx, path, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if pages.ExtractedPages == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, bookName)
	}
	if err := p.writeArtifact(category, bookName, "pages", pages); err != nil {
		return nil, err
	}
	p.log.Info("extraction complete",
		"book", bookName,
		"pages", pages.ExtractedPages,
		"empty", pages.EmptyPages,
		"ocr", pages.OCRPages,
		"image_pdf", pages.IsImagePDF)

	st, err := p.builder.Build(pages, spec)
	if err != nil {
		return nil, fmt.Errorf("structuring %s: %w", bookName, err)
	}
	if err := p.writeArtifact(category, bookName, "structure", st); err != nil {
		return nil, err
	}
	p.log.Info("structure complete",
		"book", bookName,
		"chapters", st.TotalChapters,
		"sections", st.TotalSections,
		"has_references", st.References != nil)

	bc, err := p.chunkr.ChunkBook(st)
	if err != nil {
		return nil, fmt.Errorf("chunking %s: %w", bookName, err)
	}
	if err := p.writeArtifact(category, bookName, "chunks", bc); err != nil {
		return nil, err
	}
	p.log.Info("chunking complete",
		"book", bookName,
		"chunks", bc.TotalChunks,
		"tables", bc.Statistics.TableChunks,
		"avg_tokens", bc.Statistics.AvgTokens)

	if err := p.Index(ctx, bc); err != nil {
		return nil, err
	}

	p.log.Info("book ready",
		"book", bookName,
		"book_id", bc.BookID,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return bc, nil
}

// Index embeds a chunk artifact and loads it into the vector store,
// replacing any previous data for the book.
func (p *Pipeline) Index(ctx context.Context, bc *chunker.BookChunks) error {
	if err := p.store.UpsertBook(ctx, store.Book{
		ID:          bc.BookID,
		Name:        bc.BookName,
		Category:    bc.Category,
		TotalChunks: bc.TotalChunks,
		Language:    p.cfg.OCRLanguage,
	}); err != nil {
		return fmt.Errorf("upserting book: %w", err)
	}

	if err := p.store.DeleteBookData(ctx, bc.BookID); err != nil {
		return fmt.Errorf("cleaning old data: %w", err)
	}

	rows := make([]store.Chunk, len(bc.Chunks))
	for i, c := range bc.Chunks {
		m := c.Metadata
		rows[i] = store.Chunk{
			BookID:         m.BookID,
			ChunkKey:       m.ChunkID,
			ChunkIndex:     m.ChunkIndex,
			Text:           c.Text,
			ChunkType:      m.ChunkType,
			SourceType:     m.SourceType,
			SectionName:    m.SectionName,
			TableReference: m.TableReference,
			ChapterNumber:  m.ChapterNumber,
			ChapterTitle:   m.ChapterTitle,
			SectionTitle:   m.SectionTitle,
			PageRange:      m.PageRange,
			TokenEstimate:  m.TokenEstimate,
			CharCount:      m.CharCount,
			HasOverlap:     m.HasOverlap,
		}
	}

	ids, err := p.store.InsertChunks(ctx, rows)
	if err != nil {
		return fmt.Errorf("inserting chunks: %w", err)
	}

	p.log.Info("generating embeddings", "book", bc.BookName, "chunks", len(rows))
	embedStart := time.Now()
	if err := p.embedChunks(ctx, rows, ids); err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	p.log.Info("embeddings complete",
		"book", bc.BookName,
		"chunks", len(rows),
		"elapsed", time.Since(embedStart).Round(time.Millisecond))
	return nil
}

// embedChunks generates embeddings in batches. A failed batch falls back
// to per-text embedding so one oversized text does not lose the batch.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []store.Chunk, ids []int64) error {
	const batchSize = 32
	var failed int

	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			texts[j-i] = chunks[j].Text
		}

		embeddings, err := p.embedLLM.Embed(ctx, texts)
		if err != nil {
			p.log.Warn("embedding batch failed, falling back to individual",
				"batch_start", i, "batch_end", end, "error", err)
			for j, text := range texts {
				single, serr := p.embedLLM.Embed(ctx, []string{text})
				if serr != nil || len(single) == 0 || len(single[0]) == 0 {
					p.log.Warn("embedding single text failed",
						"chunk_id", ids[i+j], "error", serr)
					failed++
					continue
				}
				if serr := p.store.InsertEmbedding(ctx, ids[i+j], single[0]); serr != nil {
					p.log.Warn("storing embedding failed",
						"chunk_id", ids[i+j], "error", serr)
					failed++
				}
			}
			continue
		}

		for j, emb := range embeddings {
			if err := p.store.InsertEmbedding(ctx, ids[i+j], emb); err != nil {
				p.log.Warn("storing embedding failed",
					"chunk_id", ids[i+j], "error", err)
				failed++
			}
		}
	}

	if len(chunks) > 0 && failed == len(chunks) {
		return fmt.Errorf("all %d chunks failed embedding", len(chunks))
	}
	if failed > 0 {
		p.log.Warn("some embeddings failed", "failed", failed, "total", len(chunks))
	}
	return nil
}

// BookResult reports the outcome of one book in a corpus run.
type BookResult struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	BookID   string `json:"book_id,omitempty"`
	Chunks   int    `json:"chunks,omitempty"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// ProcessCorpus walks the corpus directory (category subdirectories
// chapter/ and non_chapter/) and runs every PDF through the pipeline
// with bounded parallelism. A failing book is reported in its result
// and does not stop the run.
func (p *Pipeline) ProcessCorpus(ctx context.Context) ([]BookResult, error) {
	type job struct {
		path     string
		category string
	}

	var jobs []job
	for _, category := range []string{"chapter", "non_chapter"} {
		dir := filepath.Join(p.cfg.DataDir, category)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading corpus directory %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != ".pdf" {
				continue
			}
			jobs = append(jobs, job{path: filepath.Join(dir, e.Name()), category: category})
		}
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no PDFs under %s", ErrEmptyContent, p.cfg.DataDir)
	}

	workers := p.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	p.log.Info("processing corpus", "books", len(jobs), "workers", workers)

	results := make([]BookResult, len(jobs))
	jobCh := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				j := jobs[idx]
				res := BookResult{Path: j.path, Category: j.category}

				bc, err := p.ProcessBook(ctx, j.path, j.category)
				if err != nil {
					res.Err = err
					res.Error = err.Error()
					p.log.Error("book failed", "path", j.path, "error", err)
				} else {
					res.BookID = bc.BookID
					res.Chunks = bc.TotalChunks
				}
				results[idx] = res
			}
		}()
	}

	for i := range jobs {
		select {
		case jobCh <- i:
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			return results, ctx.Err()
		}
	}
	close(jobCh)
	wg.Wait()

	return results, nil
}

// Ask answers a question grounded in the indexed corpus.
func (p *Pipeline) Ask(ctx context.Context, question string) (*rag.Answer, error) {
	return p.engine.Ask(ctx, question)
}

// LessonPlan generates a lesson plan for a topic.
func (p *Pipeline) LessonPlan(ctx context.Context, topic string) (*rag.Lesson, error) {
	return p.engine.LessonPlan(ctx, topic)
}

// GenerateExam generates n multiple-choice questions for a topic.
func (p *Pipeline) GenerateExam(ctx context.Context, topic string, n int) (*rag.Exam, error) {
	return p.engine.GenerateExam(ctx, topic, n)
}

// Books lists the indexed books.
func (p *Pipeline) Books(ctx context.Context) ([]store.Book, error) {
	return p.store.ListBooks(ctx)
}

// BookChapters lists the chapters of one indexed book.
func (p *Pipeline) BookChapters(ctx context.Context, bookID string) ([]store.ChapterInfo, error) {
	return p.store.BookChapters(ctx, bookID)
}

// Stats returns corpus-wide counts.
func (p *Pipeline) Stats(ctx context.Context) (*store.Stats, error) {
	return p.store.CorpusStats(ctx)
}

// writeArtifact persists a pipeline stage's JSON artifact as
// <output>/<category>_<book>_<stage>.json.
func (p *Pipeline) writeArtifact(category, bookName, stage string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s artifact: %w", stage, err)
	}
	name := fmt.Sprintf("%s_%s_%s.json", category, bookName, stage)
	path := filepath.Join(p.cfg.OutputDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s artifact: %w", stage, err)
	}
	return nil
}

// SortResults orders corpus results: failures first, then by path.
// Useful for batch run reporting.
func SortResults(results []BookResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if (results[i].Err != nil) != (results[j].Err != nil) {
			return results[i].Err != nil
		}
		return results[i].Path < results[j].Path
	})
}
