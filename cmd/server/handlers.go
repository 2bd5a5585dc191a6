package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/nqureshi/medibook"
)

type handler struct {
	pipeline *medibook.Pipeline
}

func newHandler(p *medibook.Pipeline) *handler {
	return &handler{pipeline: p}
}

// POST /api/chat
func (h *handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.pipeline.Ask(ctx, req.Question)
	if err != nil {
		if errors.Is(err, medibook.ErrNoResults) {
			writeError(w, http.StatusNotFound, "no relevant passages found")
			return
		}
		writeError(w, http.StatusInternalServerError, "query failed")
		slog.Error("chat error", "question", req.Question, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// POST /api/lesson
func (h *handler) handleLesson(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	lesson, err := h.pipeline.LessonPlan(ctx, req.Topic)
	if err != nil {
		if errors.Is(err, medibook.ErrNoResults) {
			writeError(w, http.StatusNotFound, "no relevant passages found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lesson generation failed")
		slog.Error("lesson error", "topic", req.Topic, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, lesson)
}

// POST /api/exam
func (h *handler) handleExam(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req struct {
		Topic     string `json:"topic"`
		Questions int    `json:"num_questions,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	exam, err := h.pipeline.GenerateExam(ctx, req.Topic, req.Questions)
	if err != nil {
		if errors.Is(err, medibook.ErrNoResults) {
			writeError(w, http.StatusNotFound, "no relevant passages found")
			return
		}
		writeError(w, http.StatusInternalServerError, "exam generation failed")
		slog.Error("exam error", "topic", req.Topic, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, exam)
}

// GET /api/books
func (h *handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.pipeline.Books(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list books")
		slog.Error("list books error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"books": books,
		"total": len(books),
	})
}

// GET /api/books/{id}/chapters
func (h *handler) handleBookChapters(w http.ResponseWriter, r *http.Request) {
	bookID := r.PathValue("id")
	if bookID == "" {
		writeError(w, http.StatusBadRequest, "book id is required")
		return
	}

	chapters, err := h.pipeline.BookChapters(r.Context(), bookID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list chapters")
		slog.Error("book chapters error", "book_id", bookID, "error", err)
		return
	}
	if len(chapters) == 0 {
		writeError(w, http.StatusNotFound, "book not found or has no chunks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"book_id":  bookID,
		"chapters": chapters,
	})
}

// GET /api/books/stats/summary
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pipeline.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		slog.Error("stats error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
