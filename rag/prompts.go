package rag

import (
	"fmt"
	"strings"

	"github.com/nqureshi/medibook/store"
)

const answerSystemPrompt = `You are a medical education assistant answering questions from gynecologic oncology textbooks.

Answer using ONLY the provided context passages. Cite the book and chapter you draw from. Use precise medical terminology and keep the answer focused on the question.

If the context does not contain the information needed to answer, say "I don't have enough information in the indexed textbooks to answer this question." Do not speculate or draw on outside knowledge.`

const lessonSystemPrompt = `You are a medical educator creating a lesson plan from gynecologic oncology textbook material.

Build the lesson plan from the provided context passages only. Structure it with exactly these sections:

## Learning Objectives
## Key Concepts
## Detailed Explanation
## Clinical Applications
## Summary

Be thorough but stay grounded in the context. Note any important aspects of the topic the context does not cover.`

const examSystemPrompt = `You are a medical examiner writing board-style multiple-choice questions from gynecologic oncology textbook material.

Write questions answerable from the provided context passages only. Format every question exactly as:

Question N: <question text>
A) <option>
B) <option>
C) <option>
D) <option>
Correct Answer: <letter>
Explanation: <one or two sentences>

Each question must have exactly four options and one correct answer.`

// buildContext formats the retrieved chunks into attributed blocks.
func buildContext(results []store.SearchResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		title := r.ChapterTitle
		if title == "" {
			title = r.SectionTitle
		}
		blocks[i] = fmt.Sprintf("[Source: %s - %s (Page %s)]\n%s",
			r.BookName, title, r.PageRange, r.Text)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func buildUserPrompt(question string, results []store.SearchResult) string {
	return fmt.Sprintf("Context passages:\n\n%s\n\nQuestion: %s", buildContext(results), question)
}

func buildLessonPrompt(topic string, results []store.SearchResult) string {
	return fmt.Sprintf("Context passages:\n\n%s\n\nCreate a lesson plan on: %s", buildContext(results), topic)
}

func buildExamPrompt(topic string, n int, results []store.SearchResult) string {
	return fmt.Sprintf("Context passages:\n\n%s\n\nWrite %d multiple-choice questions on: %s",
		buildContext(results), n, topic)
}
