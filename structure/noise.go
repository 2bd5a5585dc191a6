package structure

import (
	"strings"

	"github.com/nqureshi/medibook/extract"
	"github.com/nqureshi/medibook/patterns"
)

// noiseThreshold is the score above which a page is discarded entirely.
const noiseThreshold = 0.4

// NoiseScore rates a page from 0 (clean prose) to 1 (pure boilerplate).
// It compares the fraction of noise-pattern lines against the fraction
// of lines carrying normal sentence structure, then penalises very
// short pages which are almost always covers, blanks or figure plates.
func NoiseScore(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || len(trimmed) < 30 {
		return 1.0
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return 1.0
	}

	var noisy, content int
	for _, line := range lines {
		if patterns.IsNoise(line) {
			noisy++
		}
		if patterns.IsContent(line) {
			content++
		}
	}

	score := float64(noisy)/float64(len(lines)) - 0.5*float64(content)/float64(len(lines))
	if len(trimmed) < 200 {
		score += 0.3
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// FilterNoisePages drops pages whose noise score exceeds the threshold.
// Page order is preserved.
func FilterNoisePages(pages []extract.Page) []extract.Page {
	kept := make([]extract.Page, 0, len(pages))
	for _, p := range pages {
		if NoiseScore(p.Text) <= noiseThreshold {
			kept = append(kept, p)
		}
	}
	return kept
}
