// Package patterns holds the shared heuristic pattern tables used by the
// structuring and chunking stages. Each concern (running headers, boilerplate
// noise, reference sections, content markers, tables) has exactly one table
// here so behaviour is tested once and reused consistently by every stage.
package patterns

import (
	"regexp"
	"strings"
)

// pageHeaders match whole lines that are running headers or footers:
// a page number on either side of a short title, bare page numbers,
// bracketed page numbers, "Chapter N" and "Page N" lines.
var pageHeaders = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\d+\s+[A-Z][A-Za-z\s,&\-]+\s+\d+$`),
	regexp.MustCompile(`(?i)^\d+\s+\d+\s+[A-Z][A-Za-z\s,&\-]+$`),
	regexp.MustCompile(`(?i)^[A-Z][A-Za-z\s,&\-]+\s+\d{1,4}$`),
	regexp.MustCompile(`(?i)^Chapter\s+\d+.*?\d+$`),
	regexp.MustCompile(`(?i)^Chapter\s+\d+\s*$`),
	regexp.MustCompile(`(?i)^Page\s+\d+\s*$`),
	regexp.MustCompile(`^\d{1,4}$`),
	regexp.MustCompile(`^\[\d+\]$`),
}

// noise matches boilerplate lines: publishing front matter, tables of
// contents, bibliography headings, and author-affiliation lines.
var noise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)copyright.*?all rights reserved`),
	regexp.MustCompile(`(?i)©.*?\d{4}`),
	regexp.MustCompile(`(?i)published by.*?press`),
	regexp.MustCompile(`(?i)isbn.*?\d`),
	regexp.MustCompile(`(?i)printed in`),
	regexp.MustCompile(`(?i)(first|second|third) edition`),
	regexp.MustCompile(`(?i)all rights reserved`),
	regexp.MustCompile(`(?i)no part of this.*?reproduced`),
	regexp.MustCompile(`(?i)permission.*?publisher`),
	regexp.MustCompile(`(?i)table of contents`),
	regexp.MustCompile(`(?i)^contents$`),
	regexp.MustCompile(`(?i)chapter\s+\d+.*?\.\.\.`),
	regexp.MustCompile(`(?i)preface`),
	regexp.MustCompile(`(?i)foreword`),
	regexp.MustCompile(`(?i)acknowledgements?`),
	regexp.MustCompile(`(?i)dedication`),
	regexp.MustCompile(`(?i)about the (author|editor)s?`),
	regexp.MustCompile(`(?i)\bindex\b`),
	regexp.MustCompile(`(?i)\bbibliography\b`),
	regexp.MustCompile(`(?i)\breferences\b`),
	regexp.MustCompile(`(?i)\bappendix\b`),
	regexp.MustCompile(`(?i)\bglossary\b`),
	regexp.MustCompile(`(?i)contributors?$`),
	regexp.MustCompile(`(?i)editors?:?\s*$`),
	regexp.MustCompile(`(?i)editorial board`),
	regexp.MustCompile(`(?i)department of`),
	regexp.MustCompile(`(?i)university of`),
	regexp.MustCompile(`(?i)medical center`),
	regexp.MustCompile(`(?i)division of`),
	regexp.MustCompile(`(?i)associate professor`),
	regexp.MustCompile(`(?i)assistant professor`),
	regexp.MustCompile(`(?i)fellowship`),
	regexp.MustCompile(`(?i)society of`),
}

// referenceHeadings match a line that opens a references section.
var referenceHeadings = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*references\s*$`),
	regexp.MustCompile(`(?i)^\s*bibliography\s*$`),
	regexp.MustCompile(`(?i)^\s*further reading\s*$`),
	regexp.MustCompile(`(?i)^\s*cited works\s*$`),
}

// referenceLines match citation-shaped lines inside a reference list.
var referenceLines = []*regexp.Regexp{
	regexp.MustCompile(`^\d+\.\s+[A-Z]`),       // "1. Author Name"
	regexp.MustCompile(`^[A-Z][a-z]+\s+[A-Z]`), // "Smith J"
	regexp.MustCompile(`\(\d{4}\)`),            // "(2020)"
	regexp.MustCompile(`et al\.`),
	regexp.MustCompile(`J\s+[A-Z][a-z]+`), // journal abbreviations, "J Med"
	regexp.MustCompile(`(?i)doi:`),
	regexp.MustCompile(`PMID:`),
}

// contentIndicators match clinical/medical vocabulary that marks a line
// as real textbook content rather than boilerplate.
var contentIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(introduction|overview|background)\b`),
	regexp.MustCompile(`(?i)\b(methods|methodology|materials)\b`),
	regexp.MustCompile(`(?i)\b(results|findings|outcomes)\b`),
	regexp.MustCompile(`(?i)\b(discussion|conclusion)\b`),
	regexp.MustCompile(`(?i)\b(treatment|therapy|diagnosis)\b`),
	regexp.MustCompile(`(?i)\b(pathology|histology|epidemiology)\b`),
	regexp.MustCompile(`(?i)\b(clinical|surgical|medical)\b`),
	regexp.MustCompile(`(?i)\b(patient|tumor|cancer|disease)\b`),
	regexp.MustCompile(`(?i)\b(cell|molecular|genetic|gene)\b`),
	regexp.MustCompile(`(?i)\b(risk|survival|prognosis)\b`),
}

// sectionMarkers match standard medical-textbook section headings, used
// to tag chunks with the section they fall under.
var sectionMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(Introduction|Background|Overview)\s*$`),
	regexp.MustCompile(`(?i)^(Epidemiology|Incidence|Prevalence)\s*$`),
	regexp.MustCompile(`(?i)^(Risk\s+Factors?|Etiology)\s*$`),
	regexp.MustCompile(`(?i)^(Screening|Diagnosis|Detection)\s*$`),
	regexp.MustCompile(`(?i)^(Treatment|Therapy|Management)\s*$`),
	regexp.MustCompile(`(?i)^(Guidelines|Recommendations)\s*$`),
	regexp.MustCompile(`(?i)^(Prognosis|Outcomes?|Survival)\s*$`),
	regexp.MustCompile(`(?i)^(Statistics|Data|Results)\s*$`),
	regexp.MustCompile(`(?i)^(Summary|Conclusion)\s*$`),
}

var (
	tableRef      = regexp.MustCompile(`(?i)Table\s+\d+\.?\d*`)
	chapterPrefix = regexp.MustCompile(`(?i)^Chapter\s+\d+:?\s*`)
	sentenceStart = regexp.MustCompile(`^(The|This|It|In|A|An|For|With)\s`)
	midSentence   = regexp.MustCompile(`\.\s+[A-Z]`)
)

// IsPageHeader reports whether a trimmed line is a running header/footer.
func IsPageHeader(line string) bool {
	for _, re := range pageHeaders {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// RemovePageHeaders strips every line of text that matches a running
// header/footer shape, preserving all other lines verbatim.
func RemovePageHeaders(text string) string {
	lines := strings.Split(text, "\n")
	clean := lines[:0:0]
	for _, line := range lines {
		if IsPageHeader(strings.TrimSpace(line)) {
			continue
		}
		clean = append(clean, line)
	}
	return strings.Join(clean, "\n")
}

// IsNoise reports whether a line matches any boilerplate pattern.
func IsNoise(line string) bool {
	for _, re := range noise {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// IsContent reports whether a line carries a content-indicator term.
func IsContent(line string) bool {
	for _, re := range contentIndicators {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// IsReferenceHeading reports whether a line is a references/bibliography
// section heading.
func IsReferenceHeading(line string) bool {
	for _, re := range referenceHeadings {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// IsReferenceLine reports whether a line is citation-shaped.
func IsReferenceLine(line string) bool {
	for _, re := range referenceLines {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// SectionMarker returns the standard section heading a line matches,
// if any.
func SectionMarker(line string) (string, bool) {
	for _, re := range sectionMarkers {
		if re.MatchString(line) {
			return line, true
		}
	}
	return "", false
}

// TableReference extracts a "Table N.N" label from a line, if present.
func TableReference(line string) (string, bool) {
	m := tableRef.FindString(line)
	return m, m != ""
}

// StripChapterPrefix removes a leading "Chapter N:" label from a title.
func StripChapterPrefix(s string) string {
	return strings.TrimSpace(chapterPrefix.ReplaceAllString(s, ""))
}

// IsSentenceStarter reports whether a line begins with a common sentence
// opener, which disqualifies it as a chapter title candidate.
func IsSentenceStarter(line string) bool {
	return sentenceStart.MatchString(line)
}

// HasMidSentenceBoundary reports whether a line contains a sentence
// boundary partway through, which marks it as running prose rather than
// a heading.
func HasMidSentenceBoundary(line string) bool {
	return midSentence.MatchString(line)
}
