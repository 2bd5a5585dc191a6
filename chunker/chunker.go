// Package chunker splits structured chapter text into retrieval-sized,
// sentence-aware passages with overlap, extracting tables into their own
// records and enriching every chunk with metadata for the vector index.
package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nqureshi/medibook/patterns"
)

// Config controls the chunking behaviour. Sizes are estimated tokens.
type Config struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
	MinChunkSize int `json:"min_chunk_size"`
	MaxChunkSize int `json:"max_chunk_size"`
}

// DefaultConfig returns the tuned defaults for medical textbook prose.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    325,
		ChunkOverlap: 80,
		MinChunkSize: 120,
		MaxChunkSize: 400,
	}
}

// Chunker converts chapter text into store-ready chunks.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given configuration.
// Zero-value fields are replaced with the defaults.
func New(cfg Config) *Chunker {
	def := DefaultConfig()
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.MinChunkSize == 0 {
		cfg.MinChunkSize = def.MinChunkSize
	}
	if cfg.MaxChunkSize == 0 {
		cfg.MaxChunkSize = def.MaxChunkSize
	}
	return &Chunker{cfg: cfg}
}

// Config returns the chunker's effective configuration.
func (c *Chunker) Config() Config { return c.cfg }

// EstimateTokens approximates the token count of text as one token per
// four characters. Deterministic on purpose: chunk sizing must not
// depend on a tokenizer version.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// ChunkText splits a chapter's text into overlapping chunks. Text whose
// total estimate falls below MinChunkSize yields no chunks at all.
func (c *Chunker) ChunkText(text string) []string {
	text = removeNoise(text)
	if text == "" || EstimateTokens(text) < c.cfg.MinChunkSize {
		return nil
	}

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		chunks = append(chunks, strings.Join(current, " "))
	}

	for _, para := range splitParagraphs(text) {
		paraTokens := EstimateTokens(para)

		if paraTokens > c.cfg.ChunkSize {
			// Oversized paragraph: flush and repack sentence by
			// sentence, rebuilding the overlap from trailing
			// sentences of the previous chunk.
			if len(current) > 0 {
				flush()
				current = nil
				currentTokens = 0
			}

			for _, sent := range splitSentences(para) {
				sentTokens := EstimateTokens(sent)

				if currentTokens+sentTokens > c.cfg.ChunkSize && len(current) > 0 {
					flush()

					var overlap []string
					overlapTokens := 0
					for i := len(current) - 1; i >= 0; i-- {
						st := EstimateTokens(current[i])
						if overlapTokens+st > c.cfg.ChunkOverlap {
							break
						}
						overlap = append([]string{current[i]}, overlap...)
						overlapTokens += st
					}
					current = overlap
					currentTokens = overlapTokens
				}

				current = append(current, sent)
				currentTokens += sentTokens
			}
			continue
		}

		if currentTokens+paraTokens > c.cfg.ChunkSize && len(current) > 0 {
			flush()

			// Carry the last paragraph forward as overlap when it
			// fits the overlap budget.
			last := current[len(current)-1]
			if lastTokens := EstimateTokens(last); lastTokens <= c.cfg.ChunkOverlap {
				current = []string{last}
				currentTokens = lastTokens
			} else {
				current = nil
				currentTokens = 0
			}
		}

		current = append(current, para)
		currentTokens += paraTokens
	}

	if len(current) > 0 {
		flush()
	}

	var sized []string
	for _, chunk := range chunks {
		if EstimateTokens(chunk) > c.cfg.MaxChunkSize {
			sized = append(sized, c.splitOversized(chunk)...)
		} else {
			sized = append(sized, chunk)
		}
	}

	return c.mergeSmall(sized)
}

// splitOversized bisects a chunk at the sentence midpoint (character
// midpoint when it is a single sentence) until every piece fits within
// MaxChunkSize. Worklist instead of recursion so a pathological single
// giant sentence cannot blow the stack.
func (c *Chunker) splitOversized(chunk string) []string {
	var out []string
	stack := []string{chunk}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if EstimateTokens(cur) <= c.cfg.MaxChunkSize {
			out = append(out, cur)
			continue
		}

		var left, right string
		if sentences := splitSentences(cur); len(sentences) > 1 {
			mid := len(sentences) / 2
			left = strings.Join(sentences[:mid], " ")
			right = strings.Join(sentences[mid:], " ")
		} else {
			runes := []rune(cur)
			mid := len(runes) / 2
			left, right = string(runes[:mid]), string(runes[mid:])
		}

		// Push right first so pieces come out in document order.
		stack = append(stack, right, left)
	}
	return out
}

// mergeSmall folds chunks below MinChunkSize into their neighbours.
// A trailing undersized remainder is appended to the previous chunk;
// if it is the only output it is kept as-is, the one permitted
// violation of the minimum.
func (c *Chunker) mergeSmall(chunks []string) []string {
	if len(chunks) == 0 {
		return nil
	}

	var merged []string
	var buffer []string
	bufferTokens := 0

	for _, chunk := range chunks {
		tokens := EstimateTokens(chunk)

		if tokens >= c.cfg.MinChunkSize {
			if len(buffer) > 0 {
				merged = append(merged, strings.Join(buffer, " "))
				buffer = nil
				bufferTokens = 0
			}
			merged = append(merged, chunk)
			continue
		}

		buffer = append(buffer, chunk)
		bufferTokens += tokens
		if bufferTokens >= c.cfg.MinChunkSize {
			merged = append(merged, strings.Join(buffer, " "))
			buffer = nil
			bufferTokens = 0
		}
	}

	if len(buffer) > 0 {
		if len(merged) > 0 {
			merged[len(merged)-1] += " " + strings.Join(buffer, " ")
		} else {
			merged = append(merged, strings.Join(buffer, " "))
		}
	}
	return merged
}

// removeNoise drops running-header and boilerplate lines while keeping
// blank lines, so paragraph boundaries survive for the packing pass.
func removeNoise(text string) string {
	lines := strings.Split(text, "\n")
	clean := lines[:0:0]
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			clean = append(clean, line)
			continue
		}
		if patterns.IsPageHeader(stripped) || patterns.IsNoise(stripped) {
			continue
		}
		clean = append(clean, line)
	}
	return strings.TrimSpace(strings.Join(clean, "\n"))
}

// splitParagraphs splits text on blank-line boundaries.
func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// abbrev matches trailing periods of common abbreviations that must not
// terminate a sentence.
var abbrev = regexp.MustCompile(`(Dr|Mr|Mrs|Ms|Fig|et al|vs|i\.e|e\.g)\.`)

// splitSentences splits text at sentence boundaries: a terminator
// followed by whitespace and an uppercase letter. Abbreviation periods
// are masked first so "Dr. Smith" stays intact.
func splitSentences(text string) []string {
	masked := abbrev.ReplaceAllString(text, "$1\x00")
	runes := []rune(masked)

	var parts []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j > i+1 && j < len(runes) && unicode.IsUpper(runes[j]) {
			parts = append(parts, string(runes[start:i+1]))
			start = j
			i = j - 1
		}
	}
	if start < len(runes) {
		parts = append(parts, string(runes[start:]))
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\x00", "."))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
