package diffengine

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
)

type granularity int

const (
	granularityWord granularity = iota
	granularityLine
)

// tokenize splits text into tokens that fully cover it: UAX #29 word tokens
// (whitespace runs included as tokens of their own) or \n-terminated lines.
func tokenize(text string, g granularity) []string {
	if text == "" {
		return nil
	}
	if g == granularityLine {
		return splitPreserveEOL(text)
	}
	var tokens []string
	iter := words.FromString(text)
	for iter.Next() {
		tokens = append(tokens, iter.Value())
	}
	return tokens
}

// splitPreserveEOL splits text by '\n' and preserves the '\n' on each line,
// except possibly the last.
func splitPreserveEOL(text string) []string {
	var lines []string
	for {
		idx := strings.Index(text, "\n")
		if idx == -1 {
			if text != "" {
				lines = append(lines, text)
			}
			break
		}
		lines = append(lines, text[:idx+1])
		text = text[idx+1:]
		if text == "" {
			break
		}
	}
	return lines
}

// tokenEncoder maps distinct tokens to distinct runes so the rune-based diff
// core can operate on token sequences. Mirrors diffmatchpatch's lines-to-runes
// trick, generalized to arbitrary tokens.
type tokenEncoder struct {
	runeOf map[string]rune
	tokens []string // index = rune value
	next   rune
}

func newTokenEncoder() *tokenEncoder {
	return &tokenEncoder{
		runeOf: make(map[string]rune),
		tokens: []string{""}, // rune 0 unused
		next:   1,
	}
}

func (e *tokenEncoder) encode(tokens []string) []rune {
	out := make([]rune, 0, len(tokens))
	for _, tok := range tokens {
		r, ok := e.runeOf[tok]
		if !ok {
			r = e.next
			e.next++
			if e.next == 0xD800 { // skip the surrogate range; not valid runes
				e.next = 0xE000
			}
			e.runeOf[tok] = r
			e.tokens = append(e.tokens, tok)
		}
		out = append(out, r)
	}
	return out
}

// decode maps a rune-string produced by the diff core back to token text.
func (e *tokenEncoder) decode(s string) string {
	var b strings.Builder
	for _, r := range s {
		idx := int(r)
		if idx >= 0xE000 {
			idx -= 0xE000 - 0xD800 // undo the surrogate gap
		}
		if idx > 0 && idx < len(e.tokens) {
			b.WriteString(e.tokens[idx])
		}
	}
	return b.String()
}
