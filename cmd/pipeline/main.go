// Command pipeline runs a corpus of textbook PDFs through extraction,
// structuring, chunking, embedding, and indexing, writing per-book JSON
// artifacts along the way.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nqureshi/medibook"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON)")
	dataDir := flag.String("data", "", "Corpus root with chapter/ and non_chapter/ subdirectories")
	outputDir := flag.String("output", "", "Artifact output directory")
	specPath := flag.String("spec", "", "Chapter specification file (JSON or XLSX)")
	workers := flag.Int("workers", 0, "Parallel books (default from config)")
	book := flag.String("book", "", "Process a single PDF instead of the corpus")
	category := flag.String("category", "chapter", "Category for -book (chapter or non_chapter)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg := medibook.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}

	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *specPath != "" {
		cfg.ChapterSpecPath = *specPath
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	pipeline, err := medibook.New(cfg)
	if err != nil {
		slog.Error("creating pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	// Cancel cleanly on SIGINT/SIGTERM; the current book finishes or
	// aborts at its next context check.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *book != "" {
		bc, err := pipeline.ProcessBook(ctx, *book, *category)
		if err != nil {
			slog.Error("book failed", "path", *book, "error", err)
			os.Exit(1)
		}
		slog.Info("done", "book_id", bc.BookID, "chunks", bc.TotalChunks)
		return
	}

	results, err := pipeline.ProcessCorpus(ctx)
	if err != nil {
		slog.Error("corpus run failed", "error", err)
		os.Exit(1)
	}

	medibook.SortResults(results)
	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			slog.Error("book failed", "path", res.Path, "error", res.Error)
		} else {
			slog.Info("book indexed",
				"path", res.Path,
				"book_id", res.BookID,
				"chunks", res.Chunks)
		}
	}

	slog.Info("corpus complete", "books", len(results), "failed", failed)
	if failed == len(results) {
		os.Exit(1)
	}
}
