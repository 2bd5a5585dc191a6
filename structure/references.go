package structure

import (
	"strings"

	"github.com/nqureshi/medibook/extract"
	"github.com/nqureshi/medibook/patterns"
)

// FindReferenceStart returns the index of the first page that opens a
// bibliography, or -1. A page opens one when a reference heading sits in
// its first five lines, or when most of a long page reads like citation
// entries.
func FindReferenceStart(pages []extract.Page) int {
	for i, page := range pages {
		lines := nonBlankLines(page.Text)

		head := lines
		if len(head) > 5 {
			head = head[:5]
		}
		for _, line := range head {
			if patterns.IsReferenceHeading(line) {
				return i
			}
		}

		if len(lines) > 5 {
			var refLike int
			for _, line := range lines {
				if patterns.IsReferenceLine(line) {
					refLike++
				}
			}
			if float64(refLike)/float64(len(lines)) > 0.4 {
				return i
			}
		}
	}
	return -1
}

// StripTrailingReferences removes a bibliography from the end of a page's
// text. A heading line cuts immediately; failing that, a run of three
// consecutive citation lines marks the cut at the run's first line.
func StripTrailingReferences(text string) string {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if patterns.IsReferenceHeading(line) {
			return strings.TrimSpace(strings.Join(lines[:i], "\n"))
		}
	}

	run := 0
	for i, line := range lines {
		if !patterns.IsReferenceLine(line) {
			run = 0
			continue
		}
		run++
		if run == 3 {
			return strings.TrimSpace(strings.Join(lines[:i-2], "\n"))
		}
	}
	return text
}

func nonBlankLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
