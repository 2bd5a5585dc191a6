package patterns

import (
	"strings"
	"testing"
)

func TestIsPageHeader(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{"number_title_number", "5 Biology and Genetics 1", true},
		{"double_number_title", "2 12 Gynecologic Oncology", true},
		{"title_trailing_number", "Gynecologic Oncology 123", true},
		{"chapter_with_page", "Chapter 5 Cervical Cancer 123", true},
		{"bare_chapter", "Chapter 12", true},
		{"bare_page", "Page 42", true},
		{"pure_number", "123", true},
		{"bracketed_number", "[123]", true},
		{"five_digit_number", "12345", false},
		{"prose", "The tumor was resected completely.", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPageHeader(tt.line); got != tt.want {
				t.Errorf("IsPageHeader(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestRemovePageHeaders(t *testing.T) {
	in := "5 Biology and Genetics 1\nReal content line here.\n123\nMore content."
	got := RemovePageHeaders(in)

	if strings.Contains(got, "Biology and Genetics 1") {
		t.Error("running header should have been removed")
	}
	if strings.Contains(got, "\n123") || strings.HasPrefix(got, "123") {
		t.Error("bare page number should have been removed")
	}
	if !strings.Contains(got, "Real content line here.") {
		t.Error("content line was dropped")
	}
	if !strings.Contains(got, "More content.") {
		t.Error("trailing content line was dropped")
	}
}

func TestIsNoise(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"© 2019 Springer Nature", true},
		{"ISBN: 978-3-16-148410-0", true},
		{"All rights reserved", true},
		{"Table of Contents", true},
		{"Department of Obstetrics", true},
		{"Associate Professor of Medicine", true},
		{"The patient presented with pelvic pain.", false},
	}

	for _, tt := range tests {
		if got := IsNoise(tt.line); got != tt.want {
			t.Errorf("IsNoise(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestIsContent(t *testing.T) {
	if !IsContent("Risk factors for ovarian cancer include BRCA mutations.") {
		t.Error("clinical vocabulary should mark a line as content")
	}
	if IsContent("Lorem ipsum dolor sit amet.") {
		t.Error("non-clinical text should not be content")
	}
}

func TestIsReferenceHeading(t *testing.T) {
	for _, line := range []string{"References", "  BIBLIOGRAPHY ", "Further Reading", "Cited Works"} {
		if !IsReferenceHeading(line) {
			t.Errorf("IsReferenceHeading(%q) = false, want true", line)
		}
	}
	if IsReferenceHeading("References to prior studies show") {
		t.Error("heading match must be the whole line")
	}
}

func TestIsReferenceLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"1. Smith J, Jones K. Ovarian cancer outcomes.", true},
		{"Smith J. Gynecol Oncol (2020).", true},
		{"et al. reported similar findings", true},
		{"doi:10.1000/xyz123", true},
		{"PMID: 12345678", true},
		{"lowercase prose without citations", false},
	}
	for _, tt := range tests {
		if got := IsReferenceLine(tt.line); got != tt.want {
			t.Errorf("IsReferenceLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestSectionMarker(t *testing.T) {
	if _, ok := SectionMarker("Epidemiology"); !ok {
		t.Error("expected Epidemiology to match a section marker")
	}
	if got, ok := SectionMarker("Risk Factors"); !ok || got != "Risk Factors" {
		t.Errorf("SectionMarker(\"Risk Factors\") = (%q, %v)", got, ok)
	}
	if _, ok := SectionMarker("Epidemiology of cervical cancer"); ok {
		t.Error("marker must match the whole line")
	}
}

func TestTableReference(t *testing.T) {
	ref, ok := TableReference("Table 4.2 Risk Factors for Endometrial Cancer")
	if !ok || ref != "Table 4.2" {
		t.Errorf("TableReference = (%q, %v), want (\"Table 4.2\", true)", ref, ok)
	}
	if _, ok := TableReference("No tabular citation here."); ok {
		t.Error("expected no table reference")
	}
}

func TestStripChapterPrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Chapter 5: Cervical Cancer", "Cervical Cancer"},
		{"Chapter 12 Ovarian Tumors", "Ovarian Tumors"},
		{"Cervical Cancer", "Cervical Cancer"},
	}
	for _, tt := range tests {
		if got := StripChapterPrefix(tt.in); got != tt.want {
			t.Errorf("StripChapterPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
