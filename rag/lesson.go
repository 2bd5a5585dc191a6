package rag

import (
	"context"
	"fmt"

	"github.com/nqureshi/medibook/llm"
)

// lessonTopK retrieves more context than Ask does: a lesson plan covers
// a whole topic rather than a single question.
const lessonTopK = 10

// Lesson is a generated lesson plan with its supporting sources.
type Lesson struct {
	Topic   string   `json:"topic"`
	Plan    string   `json:"lesson_plan"`
	Sources []Source `json:"sources"`
	Model   string   `json:"model,omitempty"`
}

// LessonPlan generates a structured lesson plan for a topic from the
// indexed material.
func (e *Engine) LessonPlan(ctx context.Context, topic string) (*Lesson, error) {
	results, err := e.retrieve(ctx, topic, lessonTopK)
	if err != nil {
		return nil, err
	}

	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: lessonSystemPrompt},
			{Role: "user", Content: buildLessonPrompt(topic, results)},
		},
		Temperature: e.cfg.Temperature,
		// Lesson plans run long; double the answer budget.
		MaxTokens: e.cfg.MaxTokens * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("generating lesson plan: %w", err)
	}

	return &Lesson{
		Topic:   topic,
		Plan:    resp.Content,
		Sources: toSources(results),
		Model:   resp.Model,
	}, nil
}
