package rag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/nqureshi/medibook/llm"
	"github.com/nqureshi/medibook/store"
)

// fakeSearcher returns canned results and records the requested k.
type fakeSearcher struct {
	results []store.SearchResult
	err     error
	lastK   int
}

func (f *fakeSearcher) VectorSearch(ctx context.Context, emb []float32, k int) ([]store.SearchResult, error) {
	f.lastK = k
	return f.results, f.err
}

// fakeProvider records chat requests and embed inputs.
type fakeProvider struct {
	chatResponse string
	chatErr      error
	lastChat     llm.ChatRequest
	lastEmbed    []string
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.lastChat = req
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &llm.ChatResponse{Content: f.chatResponse, Model: "fake-model", TotalTokens: 100}, nil
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.lastEmbed = texts
	return [][]float32{{0.1, 0.2, 0.3}}, nil
}

func sampleResults() []store.SearchResult {
	return []store.SearchResult{
		{
			ChunkID:      1,
			Text:         "HPV is the primary cause of cervical cancer.",
			BookName:     "gyn_oncology",
			Category:     "chapter",
			ChapterTitle: "Cervical Cancer",
			PageRange:    "10-42",
			ChunkType:    "text",
			Score:        0.92,
		},
		{
			ChunkID:      2,
			Text:         "Screening with cytology reduces mortality.",
			BookName:     "gyn_oncology",
			Category:     "chapter",
			ChapterTitle: "Cervical Cancer",
			PageRange:    "10-42",
			ChunkType:    "text",
			Score:        0.85,
		},
	}
}

func newTestEngine(searcher Searcher, provider llm.Provider) *Engine {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(searcher, provider, provider, DefaultConfig(), log)
}

func TestAsk(t *testing.T) {
	searcher := &fakeSearcher{results: sampleResults()}
	provider := &fakeProvider{chatResponse: "HPV infection causes cervical cancer."}
	engine := newTestEngine(searcher, provider)

	ans, err := engine.Ask(context.Background(), "What causes cervical cancer?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if ans.Text != "HPV infection causes cervical cancer." {
		t.Errorf("answer = %q", ans.Text)
	}
	if len(ans.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(ans.Sources))
	}
	if ans.Sources[0].Rank != 1 || ans.Sources[1].Rank != 2 {
		t.Errorf("source ranks = %d, %d", ans.Sources[0].Rank, ans.Sources[1].Rank)
	}
	if ans.Sources[0].BookName != "gyn_oncology" {
		t.Errorf("source book = %q", ans.Sources[0].BookName)
	}

	// Query embedding should carry the BGE instruction prefix.
	if len(provider.lastEmbed) != 1 || !strings.HasPrefix(provider.lastEmbed[0], queryPrefix) {
		t.Errorf("embed input = %v", provider.lastEmbed)
	}

	// Default top-k.
	if searcher.lastK != 5 {
		t.Errorf("k = %d, want 5", searcher.lastK)
	}

	// Generation parameters.
	if provider.lastChat.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", provider.lastChat.Temperature)
	}
	if provider.lastChat.MaxTokens != 1000 {
		t.Errorf("max_tokens = %d, want 1000", provider.lastChat.MaxTokens)
	}
}

func TestAskPromptContainsContext(t *testing.T) {
	searcher := &fakeSearcher{results: sampleResults()}
	provider := &fakeProvider{chatResponse: "answer"}
	engine := newTestEngine(searcher, provider)

	if _, err := engine.Ask(context.Background(), "question?"); err != nil {
		t.Fatalf("ask: %v", err)
	}

	msgs := provider.lastChat.Messages
	if len(msgs) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(msgs))
	}
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "don't have enough information") {
		t.Errorf("system prompt missing refusal instruction")
	}
	user := msgs[1].Content
	if !strings.Contains(user, "[Source: gyn_oncology - Cervical Cancer (Page 10-42)]") {
		t.Errorf("user prompt missing source attribution:\n%s", user)
	}
	if !strings.Contains(user, "HPV is the primary cause") {
		t.Errorf("user prompt missing passage text")
	}
	if !strings.Contains(user, "\n\n---\n\n") {
		t.Errorf("context blocks not separated")
	}
	if !strings.Contains(user, "Question: question?") {
		t.Errorf("user prompt missing the question")
	}
}

func TestAskNoResults(t *testing.T) {
	searcher := &fakeSearcher{results: nil}
	provider := &fakeProvider{chatResponse: "should not be called"}
	engine := newTestEngine(searcher, provider)

	_, err := engine.Ask(context.Background(), "anything")
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestAskChatError(t *testing.T) {
	searcher := &fakeSearcher{results: sampleResults()}
	provider := &fakeProvider{chatErr: errors.New("backend down")}
	engine := newTestEngine(searcher, provider)

	_, err := engine.Ask(context.Background(), "anything")
	if err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Fatalf("expected wrapped chat error, got %v", err)
	}
}

func TestLessonPlan(t *testing.T) {
	searcher := &fakeSearcher{results: sampleResults()}
	provider := &fakeProvider{chatResponse: "## Learning Objectives\n..."}
	engine := newTestEngine(searcher, provider)

	lesson, err := engine.LessonPlan(context.Background(), "Cervical Cancer Screening")
	if err != nil {
		t.Fatalf("lesson plan: %v", err)
	}
	if lesson.Topic != "Cervical Cancer Screening" {
		t.Errorf("topic = %q", lesson.Topic)
	}
	if !strings.HasPrefix(lesson.Plan, "## Learning Objectives") {
		t.Errorf("plan = %q", lesson.Plan)
	}
	if searcher.lastK != lessonTopK {
		t.Errorf("k = %d, want %d", searcher.lastK, lessonTopK)
	}
	if !strings.Contains(provider.lastChat.Messages[0].Content, "Learning Objectives") {
		t.Errorf("lesson system prompt missing section structure")
	}
	// Lesson plans get a doubled token budget.
	if provider.lastChat.MaxTokens != 2000 {
		t.Errorf("max_tokens = %d, want 2000", provider.lastChat.MaxTokens)
	}
}

const examOutput = `Question 1: What is the primary cause of cervical cancer?
A) Smoking
B) HPV infection
C) Alcohol use
D) Genetics
Correct Answer: B
Explanation: Persistent HPV infection drives nearly all cervical cancers.

Question 2: Which screening test reduces cervical cancer mortality?
A) Colonoscopy
B) Mammography
C) Cytology
D) Chest X-ray
Correct Answer: C
Explanation: Cytology-based screening detects precancerous lesions.`

func TestGenerateExam(t *testing.T) {
	searcher := &fakeSearcher{results: sampleResults()}
	provider := &fakeProvider{chatResponse: examOutput}
	engine := newTestEngine(searcher, provider)

	exam, err := engine.GenerateExam(context.Background(), "cervical cancer", 2)
	if err != nil {
		t.Fatalf("generate exam: %v", err)
	}
	if len(exam.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(exam.Questions))
	}

	q1 := exam.Questions[0]
	if q1.Question != "What is the primary cause of cervical cancer?" {
		t.Errorf("q1 text = %q", q1.Question)
	}
	if len(q1.Options) != 4 || q1.Options[1] != "HPV infection" {
		t.Errorf("q1 options = %v", q1.Options)
	}
	if q1.CorrectAnswer != "B" {
		t.Errorf("q1 correct = %q", q1.CorrectAnswer)
	}
	if !strings.Contains(q1.Explanation, "Persistent HPV") {
		t.Errorf("q1 explanation = %q", q1.Explanation)
	}
	if exam.Questions[1].CorrectAnswer != "C" {
		t.Errorf("q2 correct = %q", exam.Questions[1].CorrectAnswer)
	}
}

func TestGenerateExamDefaultCount(t *testing.T) {
	searcher := &fakeSearcher{results: sampleResults()}
	provider := &fakeProvider{chatResponse: examOutput}
	engine := newTestEngine(searcher, provider)

	if _, err := engine.GenerateExam(context.Background(), "topic", 0); err != nil {
		t.Fatalf("generate exam: %v", err)
	}
	if !strings.Contains(provider.lastChat.Messages[1].Content, "Write 5 multiple-choice") {
		t.Errorf("default count not applied:\n%s", provider.lastChat.Messages[1].Content)
	}
}

func TestParseQuestionsDropsMalformed(t *testing.T) {
	// Second block has only three options, third lacks a correct answer.
	text := `Question 1: Valid question?
A) one
B) two
C) three
D) four
Correct Answer: A

Question 2: Only three options?
A) one
B) two
C) three
Correct Answer: B

Question 3: No answer line?
A) one
B) two
C) three
D) four
`
	got := parseQuestions(text)
	if len(got) != 1 {
		t.Fatalf("expected 1 valid question, got %d", len(got))
	}
	if got[0].Question != "Valid question?" {
		t.Errorf("question = %q", got[0].Question)
	}
	if got[0].Number != 1 {
		t.Errorf("number = %d", got[0].Number)
	}
}

func TestParseQuestionsEmpty(t *testing.T) {
	if got := parseQuestions("no questions here"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
