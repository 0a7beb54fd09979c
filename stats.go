package main

import (
	"slices"
	"strings"
)

// summarize totals files, lines and characters over non-excluded contents.
// Tokens are only counted when tk is non-nil.
func summarize(contents []FileContent, tk Tokenizer) Summary {
	var s Summary
	for _, fc := range contents {
		if fc.Excluded {
			continue
		}
		s.TotalFiles++
		s.TotalLines += fc.Stats.Lines
		s.TotalChars += fc.Stats.Chars
		if tk != nil {
			s.TotalTokens += tk.CountTokens(fc.Content)
		}
	}
	return s
}

// rankBySize orders a copy of contents by character count, largest first.
func rankBySize(contents []FileContent) []FileContent {
	ranked := slices.Clone(contents)
	slices.SortStableFunc(ranked, func(a, b FileContent) int {
		if a.Stats.Chars != b.Stats.Chars {
			return b.Stats.Chars - a.Stats.Chars
		}
		return strings.Compare(a.Path, b.Path)
	})
	return ranked
}
