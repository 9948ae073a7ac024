// Package textproc normalizes extracted text and gates out extractions too
// poor to be worth embedding.
package textproc

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Clean runs the normalization pipeline, in this exact order: NFC unicode
// normalization, removal of non-printable control characters except newline
// and tab, collapse of space/tab runs to a single space, per-line trim,
// collapse of 3+ consecutive newlines to exactly 2, outer trim.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}

	text := norm.NFC.String(raw)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	text = b.String()

	text = spaceRuns.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = newlineRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// Quality gate thresholds below the configurable minimum length.
const (
	minUniqueChars = 10
	minWords       = 10
)

// QualityOK reports whether text is worth processing: at least minLength
// characters, at least 10 distinct characters, and at least 10 words.
// Rejected text is treated as a file failure, not a skip.
func QualityOK(text string, minLength int) bool {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < minLength {
		return false
	}

	unique := make(map[rune]struct{})
	for _, r := range strings.ToLower(text) {
		unique[r] = struct{}{}
	}
	if len(unique) < minUniqueChars {
		return false
	}

	if len(strings.Fields(text)) < minWords {
		return false
	}
	return true
}
