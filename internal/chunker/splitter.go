package chunker

import (
	"strings"

	"github.com/ragify/ragify/pkg/types"
)

// Splitter splits text into blocks of at most targetTokens, carrying
// roughly overlapTokens of trailing context into the next block. Both
// chunking passes run through this interface so tests can inject faults.
type Splitter interface {
	Split(text string, targetTokens, overlapTokens int) ([]string, error)
}

// tokenSplitter is the token-aware semantic splitter: it cuts on paragraph
// and sentence boundaries, packing units greedily up to the token target.
type tokenSplitter struct {
	tok Tokenizer
}

// NewTokenSplitter returns the default splitter used by both chunking passes.
func NewTokenSplitter(tok Tokenizer) Splitter {
	return &tokenSplitter{tok: tok}
}

type unit struct {
	text   string
	tokens int
}

func (s *tokenSplitter) Split(text string, targetTokens, overlapTokens int) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if s.tok.Count(text) <= targetTokens {
		return []string{text}, nil
	}

	units := s.units(text, targetTokens)
	if len(units) == 0 {
		return nil, nil
	}

	var blocks []string
	var cur []unit
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		parts := make([]string, len(cur))
		for i, u := range cur {
			parts[i] = u.text
		}
		blocks = append(blocks, strings.Join(parts, "\n"))
	}

	for _, u := range units {
		if len(cur) > 0 && curTokens+u.tokens > targetTokens {
			flush()
			cur, curTokens = carryOverlap(cur, overlapTokens, targetTokens)
		}
		cur = append(cur, u)
		curTokens += u.tokens
	}
	flush()

	return blocks, nil
}

// carryOverlap selects the trailing units of the closed block that seed the
// next one, stopping once overlapTokens is reached. The carried tokens are
// capped at half the target so the next block always has room to grow.
func carryOverlap(closed []unit, overlapTokens, targetTokens int) ([]unit, int) {
	if overlapTokens <= 0 {
		return nil, 0
	}
	budget := overlapTokens
	if max := targetTokens / 2; budget > max {
		budget = max
	}

	total := 0
	start := len(closed)
	for i := len(closed) - 1; i >= 0; i-- {
		if total+closed[i].tokens > budget {
			break
		}
		total += closed[i].tokens
		start = i
	}
	if start == len(closed) {
		return nil, 0
	}
	carried := make([]unit, len(closed)-start)
	copy(carried, closed[start:])
	return carried, total
}

// units decomposes text into paragraph units, splitting oversized paragraphs
// into sentences and hard-splitting any sentence that alone exceeds the
// target.
func (s *tokenSplitter) units(text string, targetTokens int) []unit {
	var out []unit
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		pt := s.tok.Count(para)
		if pt <= targetTokens {
			out = append(out, unit{text: para, tokens: pt})
			continue
		}
		for _, sent := range splitSentences(para) {
			st := s.tok.Count(sent)
			if st <= targetTokens {
				out = append(out, unit{text: sent, tokens: st})
				continue
			}
			for _, piece := range FallbackSplit(sent, targetTokens, 0) {
				out = append(out, unit{text: piece, tokens: s.tok.Count(piece)})
			}
		}
	}
	return out
}

// splitSentences cuts text after sentence-ending punctuation followed by
// whitespace. Lines without punctuation split on single newlines.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		boundary := false
		switch r {
		case '.', '!', '?':
			boundary = i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\n')
		case '\n':
			boundary = true
		}
		if boundary {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// FallbackSplit is the character-window escape hatch: windows of
// targetTokens*4 characters with overlapTokens*4 characters of overlap,
// looping until the input is consumed. It requires no tokenizer and cannot
// fail; the step is clamped so a too-large overlap can never stall the loop.
func FallbackSplit(text string, targetTokens, overlapTokens int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	targetChars := targetTokens * types.TokensPerChar
	if targetChars <= 0 {
		targetChars = types.TokensPerChar
	}
	overlapChars := overlapTokens * types.TokensPerChar

	step := targetChars - overlapChars
	if step <= 0 {
		step = targetChars
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + targetChars
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			out = append(out, window)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
