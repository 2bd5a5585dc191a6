package extract

import (
	"context"
	"testing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses_spaces", "a   b\tc", "a b c"},
		{"preserves_newlines", "line one\nline two", "line one\nline two"},
		{"trims_lines", "  padded line  \nnext", "padded line\nnext"},
		{"windows_newlines", "one\r\ntwo", "one\ntwo"},
		{"empty", "   \n  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanText(tt.in); got != tt.want {
				t.Errorf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildHints(t *testing.T) {
	hints := BuildHints([]ChapterRange{
		{Number: 1, Title: "Biology", StartPage: 1, EndPage: 3},
		{Number: 2, Title: "Screening", StartPage: 4, EndPage: 4},
	})

	if len(hints) != 4 {
		t.Fatalf("expected hints for 4 pages, got %d", len(hints))
	}
	if h := hints[2]; h.Number != 1 || h.Title != "Biology" {
		t.Errorf("hints[2] = %+v, want chapter 1 Biology", h)
	}
	if h := hints[4]; h.Number != 2 {
		t.Errorf("hints[4] = %+v, want chapter 2", h)
	}
	if _, ok := hints[5]; ok {
		t.Error("page 5 should have no hint")
	}
}

func TestBuildHintsInvertedRange(t *testing.T) {
	// A malformed spec with end < start still hints the start page.
	hints := BuildHints([]ChapterRange{{Number: 3, Title: "X", StartPage: 7, EndPage: 2}})
	if _, ok := hints[7]; !ok {
		t.Error("start page should be hinted even when range is inverted")
	}
}

func TestStubOCRUnavailable(t *testing.T) {
	e := New()
	defer e.Close()
	if e.ocr.available() {
		t.Skip("built with ocr tag")
	}
	if _, err := e.ocr.recognizePage(context.Background(), "x.pdf", 1, "eng"); err == nil {
		t.Error("stub OCR should return an error")
	}
}
