package chunker

import (
	"strings"

	"github.com/nqureshi/medibook/patterns"
)

// Table is a tabular block lifted out of chapter text before chunking.
type Table struct {
	Content   string `json:"content"`
	Reference string `json:"reference,omitempty"`
	RowCount  int    `json:"row_count"`
}

// DetectTables extracts tabular blocks from text and returns them along
// with the remaining prose. A run of two or more consecutive lines is a
// table when each line has at least two column separators (pipe or tab)
// or a digit density above 30%. A "Table N.N" label on the line before
// the run becomes the table's reference and is dropped from the prose.
func DetectTables(text string) ([]Table, string) {
	var (
		tables     []Table
		tableLines []string
		proseLines []string
		inTable    bool
		reference  string
	)

	endTable := func() {
		if len(tableLines) >= 2 {
			tables = append(tables, Table{
				Content:   strings.Join(tableLines, "\n"),
				Reference: reference,
				RowCount:  len(tableLines),
			})
		} else {
			proseLines = append(proseLines, tableLines...)
		}
		tableLines = nil
		inTable = false
		reference = ""
	}

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)

		if !inTable {
			if ref, ok := patterns.TableReference(stripped); ok {
				reference = ref
				continue
			}
		}

		if isTableLine(line) {
			inTable = true
			tableLines = append(tableLines, line)
			continue
		}

		if inTable {
			endTable()
		}
		proseLines = append(proseLines, line)
	}

	if inTable {
		endTable()
	}

	return tables, strings.Join(proseLines, "\n")
}

// isTableLine reports whether a single line looks like a table row.
func isTableLine(line string) bool {
	if strings.Count(line, "|") >= 2 || strings.Count(line, "\t") >= 2 {
		return true
	}
	if len(line) == 0 {
		return false
	}
	digits := 0
	for _, c := range line {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	return float64(digits)/float64(len(line)) > 0.3
}
