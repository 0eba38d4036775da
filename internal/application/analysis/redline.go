package analysis

import (
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// tokenBase is the first rune used to encode a word.  Tokens map into the
// supplementary private use planes so they never collide with claim text.
const tokenBase = 0xF0000

// WordDiffer is a Differ that produces a word-level redline with
// diff-match-patch.  Each word and each whitespace run is encoded as a single
// rune, diffed, then decoded back, so spans never split a word.
type WordDiffer struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewWordDiffer creates a WordDiffer.
func NewWordDiffer() *WordDiffer {
	return &WordDiffer{dmp: diffmatchpatch.New()}
}

// Diff implements Differ.
func (d *WordDiffer) Diff(original, later string) []Span {
	index := map[string]rune{}
	var tokens []string
	encode := func(text string) string {
		var sb strings.Builder
		for _, tok := range splitWords(text) {
			r, ok := index[tok]
			if !ok {
				r = rune(tokenBase + len(tokens))
				index[tok] = r
				tokens = append(tokens, tok)
			}
			sb.WriteRune(r)
		}
		return sb.String()
	}
	a, b := encode(original), encode(later)

	diffs := d.dmp.DiffMain(a, b, false)
	diffs = d.dmp.DiffCleanupSemantic(diffs)

	spans := make([]Span, 0, len(diffs))
	for _, df := range diffs {
		var sb strings.Builder
		for _, r := range df.Text {
			sb.WriteString(tokens[int(r)-tokenBase])
		}
		if sb.Len() == 0 {
			continue
		}
		op := SpanEqual
		switch df.Type {
		case diffmatchpatch.DiffInsert:
			op = SpanInsert
		case diffmatchpatch.DiffDelete:
			op = SpanDelete
		}
		if n := len(spans); n > 0 && spans[n-1].Op == op {
			spans[n-1].Text += sb.String()
			continue
		}
		spans = append(spans, Span{Op: op, Text: sb.String()})
	}
	return spans
}

// splitWords cuts s into alternating word and whitespace runs.
func splitWords(s string) []string {
	var out []string
	start, prevSpace := 0, false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > start && space != prevSpace {
			out = append(out, s[start:i])
			start = i
		}
		prevSpace = space
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

//Personal.AI order the ending
