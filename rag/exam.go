package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nqureshi/medibook/llm"
)

const (
	defaultExamQuestions = 5
	maxExamQuestions     = 20
	examTopK             = 10
)

// ExamQuestion is one parsed multiple-choice question.
type ExamQuestion struct {
	Number        int      `json:"number"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Exam is a generated set of questions with its supporting sources.
type Exam struct {
	Topic     string         `json:"topic"`
	Questions []ExamQuestion `json:"questions"`
	Sources   []Source       `json:"sources"`
	Model     string         `json:"model,omitempty"`
}

var (
	questionSplitRe = regexp.MustCompile(`(?m)^Question\s+(\d+):\s*`)
	optionRe        = regexp.MustCompile(`(?m)^([A-D])\)\s*(.+)$`)
	correctRe       = regexp.MustCompile(`(?m)^Correct Answer:\s*([A-D])`)
	explanationRe   = regexp.MustCompile(`(?m)^Explanation:\s*(.+)$`)
)

// GenerateExam produces n multiple-choice questions on the topic from
// the indexed material. n is clamped to [1, 20]; zero means the default
// of 5.
func (e *Engine) GenerateExam(ctx context.Context, topic string, n int) (*Exam, error) {
	if n <= 0 {
		n = defaultExamQuestions
	}
	if n > maxExamQuestions {
		n = maxExamQuestions
	}

	results, err := e.retrieve(ctx, topic, examTopK)
	if err != nil {
		return nil, err
	}

	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: examSystemPrompt},
			{Role: "user", Content: buildExamPrompt(topic, n, results)},
		},
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("generating exam: %w", err)
	}

	questions := parseQuestions(resp.Content)
	if len(questions) == 0 {
		return nil, fmt.Errorf("exam generation produced no parseable questions")
	}

	return &Exam{
		Topic:     topic,
		Questions: questions,
		Sources:   toSources(results),
		Model:     resp.Model,
	}, nil
}

// parseQuestions extracts MCQ blocks from the model output. Blocks
// missing four options or a correct answer are dropped.
func parseQuestions(text string) []ExamQuestion {
	matches := questionSplitRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var questions []ExamQuestion
	for i, m := range matches {
		blockStart := m[1]
		blockEnd := len(text)
		if i+1 < len(matches) {
			blockEnd = matches[i+1][0]
		}
		block := text[blockStart:blockEnd]

		q := ExamQuestion{Number: len(questions) + 1}

		// Question text runs to the first option line.
		if loc := optionRe.FindStringIndex(block); loc != nil {
			q.Question = strings.TrimSpace(block[:loc[0]])
		} else {
			continue
		}

		for _, opt := range optionRe.FindAllStringSubmatch(block, -1) {
			q.Options = append(q.Options, strings.TrimSpace(opt[2]))
		}
		if len(q.Options) != 4 {
			continue
		}

		correct := correctRe.FindStringSubmatch(block)
		if correct == nil {
			continue
		}
		q.CorrectAnswer = correct[1]

		if expl := explanationRe.FindStringSubmatch(block); expl != nil {
			q.Explanation = strings.TrimSpace(expl[1])
		}

		questions = append(questions, q)
	}
	return questions
}
